package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var warehousesCmd = &cobra.Command{
	Use:   "warehouses",
	Short: "List the seller account's FBS warehouses",
	RunE:  runWarehouses,
}

func init() {
	rootCmd.AddCommand(warehousesCmd)
}

func runWarehouses(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := newOzonClient(cfg, logger)
	if err != nil {
		return err
	}

	warehouses, err := client.WarehouseList(ctx)
	if err != nil {
		return err
	}

	for _, wh := range warehouses {
		fmt.Printf("%d\t%s\t%s\n", wh.WarehouseID, wh.Name, wh.Status)
	}
	return nil
}
