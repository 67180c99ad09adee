// Package main provides the partsync command line interface: resolving
// supplier part codes through the B2B portal and syncing prices and stocks
// to the Ozon seller account.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "partsync",
	Short: "Supplier offer resolution and marketplace price/stock sync",
	Long: "partsync drives a headless browser through the supplier B2B portal to resolve\n" +
		"part codes into brand/number references, extracts first-warehouse offers and\n" +
		"feeds the Ozon price and stock pipeline.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
