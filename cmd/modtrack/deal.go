package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var dealCmd = &cobra.Command{
	Use:   "deal",
	Short: "Manage deals",
}

var dealAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new deal",
	RunE:  runDealAdd,
}

var dealListCmd = &cobra.Command{
	Use:   "list",
	Short: "List deals",
	RunE:  runDealList,
}

var dealShowCmd = &cobra.Command{
	Use:   "show [deal-id]",
	Short: "Show a deal and its resolved modules",
	Args:  cobra.ExactArgs(1),
	RunE:  runDealShow,
}

var dealStageCmd = &cobra.Command{
	Use:   "stage [deal-id]",
	Short: "Set a deal's stage",
	Args:  cobra.ExactArgs(1),
	RunE:  runDealStage,
}

var (
	dealTitle     string
	dealProductID string
	dealValue     string
	dealStage     string
	stageValue    string
)

func init() {
	dealCmd.AddCommand(dealAddCmd, dealListCmd, dealShowCmd, dealStageCmd)

	dealAddCmd.Flags().StringVar(&dealTitle, "title", "", "Deal title (required)")
	dealAddCmd.Flags().StringVar(&dealProductID, "product", "", "Seed modules from this product ID")
	dealAddCmd.Flags().StringVar(&dealValue, "value", "", "Deal value, e.g. 12500.00")
	dealAddCmd.MarkFlagRequired("title")

	dealListCmd.Flags().StringVar(&dealStage, "stage", "", "Filter by stage (open, won, lost)")

	dealStageCmd.Flags().StringVar(&stageValue, "to", "", "Target stage (open, won, lost)")
	dealStageCmd.MarkFlagRequired("to")
}

func runDealAdd(cmd *cobra.Command, args []string) error {
	body := map[string]string{
		"title":      dealTitle,
		"product_id": dealProductID,
		"value":      dealValue,
	}

	resp, err := apiPost("/deals", body)
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Created deal: %s\n", result["id"])
	return nil
}

func runDealList(cmd *cobra.Command, args []string) error {
	url := "/deals"
	if dealStage != "" {
		url += "?stage=" + dealStage
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var deals []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Stage string `json:"stage"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(resp, &deals); err != nil {
		return err
	}

	if len(deals) == 0 {
		fmt.Println("No deals found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTAGE\tVALUE")
	for _, d := range deals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Title, d.Stage, d.Value)
	}
	return w.Flush()
}

func runDealShow(cmd *cobra.Command, args []string) error {
	dealID := args[0]

	resp, err := apiGet("/deals/" + dealID)
	if err != nil {
		return err
	}

	var deal struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Stage string `json:"stage"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(resp, &deal); err != nil {
		return err
	}

	fmt.Printf("Deal:  %s\n", deal.Title)
	fmt.Printf("ID:    %s\n", deal.ID)
	fmt.Printf("Stage: %s\n", deal.Stage)
	fmt.Printf("Value: %s\n", deal.Value)

	resp, err = apiGet("/deals/" + dealID + "/modules")
	if err != nil {
		return err
	}

	var resolved struct {
		Modules []struct {
			Name           string `json:"name"`
			InternalStatus string `json:"internal_status"`
			ClientStatus   string `json:"client_status"`
		} `json:"modules"`
		ProductName  string `json:"product_name"`
		NeedsProduct bool   `json:"needs_product"`
	}
	if err := json.Unmarshal(resp, &resolved); err != nil {
		return err
	}

	if resolved.ProductName != "" {
		fmt.Printf("Product: %s\n", resolved.ProductName)
	}
	if resolved.NeedsProduct {
		fmt.Println("\nNo product matched this deal; pick one to start tracking modules.")
		return nil
	}

	fmt.Println("\nModules:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTERNAL\tCLIENT")
	for _, m := range resolved.Modules {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, m.InternalStatus, m.ClientStatus)
	}
	return w.Flush()
}

func runDealStage(cmd *cobra.Command, args []string) error {
	resp, err := apiPost("/deals/"+args[0]+"/stage", map[string]string{"stage": stageValue})
	if err != nil {
		return err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}

	fmt.Printf("Deal %s is now %s\n", result["id"], result["stage"])
	return nil
}
