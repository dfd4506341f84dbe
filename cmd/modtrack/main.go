package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "modtrack",
	Short: "Modtrack - deal module tracking CLI",
	Long:  `Modtrack tracks per-module delivery progress on deals, reconciles it against the product catalog, and controls what the client gets to see.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7467", "API server address")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(dealCmd)
	rootCmd.AddCommand(editCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
