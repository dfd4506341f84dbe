package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage the product catalog",
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a catalog product",
	RunE:  runProductAdd,
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog products in catalog order",
	RunE:  runProductList,
}

var productShowCmd = &cobra.Command{
	Use:   "show <product-id>",
	Short: "Show one product and its module definitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductShow,
}

var (
	productName    string
	productModules string
)

func init() {
	productCmd.AddCommand(productAddCmd, productListCmd, productShowCmd)

	productAddCmd.Flags().StringVar(&productName, "name", "", "Product name (required)")
	productAddCmd.Flags().StringVar(&productModules, "modules", "", "Comma-separated module names, in delivery order")
	productAddCmd.MarkFlagRequired("name")
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	var modules []string
	for _, m := range strings.Split(productModules, ",") {
		if m = strings.TrimSpace(m); m != "" {
			modules = append(modules, m)
		}
	}

	body := map[string]interface{}{
		"name":    productName,
		"modules": modules,
	}

	resp, err := apiPost("/products", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created product: %s\n", result["id"])
	return nil
}

func runProductShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/products/" + args[0])
	if err != nil {
		return err
	}

	var product struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		ModuleDefinitions []struct {
			Name string `json:"name"`
		} `json:"module_definitions"`
	}
	if err := json.Unmarshal(resp, &product); err != nil {
		return err
	}

	fmt.Printf("Product: %s (%s)\n", product.Name, product.ID)
	if len(product.ModuleDefinitions) == 0 {
		fmt.Println("No module definitions.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tMODULE")
	for i, d := range product.ModuleDefinitions {
		fmt.Fprintf(w, "%d\t%s\n", i+1, d.Name)
	}
	return w.Flush()
}

func runProductList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/products")
	if err != nil {
		return err
	}

	var products []struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		ModuleDefinitions []struct {
			Name string `json:"name"`
		} `json:"module_definitions"`
	}
	if err := json.Unmarshal(resp, &products); err != nil {
		return err
	}

	if len(products) == 0 {
		fmt.Println("No products in the catalog.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODULES")
	for _, p := range products {
		names := make([]string, len(p.ModuleDefinitions))
		for i, d := range p.ModuleDefinitions {
			names[i] = d.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, strings.Join(names, ", "))
	}
	return w.Flush()
}
