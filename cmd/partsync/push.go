package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"partsync/internal/ozon"
	"partsync/internal/syncer"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push calculated prices or supplier stocks to the marketplace",
}

var pushPricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Send every pending calculated price",
	RunE:  runPushPrices,
}

var pushStocksCmd = &cobra.Command{
	Use:   "stocks",
	Short: "Mirror supplier quantities to the configured warehouse",
	RunE:  runPushStocks,
}

func init() {
	pushCmd.AddCommand(pushPricesCmd)
	pushCmd.AddCommand(pushStocksCmd)
	rootCmd.AddCommand(pushCmd)
}

func runPushPrices(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newOzonClient(cfg, logger)
	if err != nil {
		return err
	}
	pusher := ozon.NewPusher(client, cfg.Ozon.ItemsPerMinute)

	updated, err := syncer.NewCatalog(db, client, logger).PushPrices(ctx, pusher)
	if err != nil {
		return err
	}
	logger.Info("price push complete", "updated", updated)
	return nil
}

func runPushStocks(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if cfg.Ozon.WarehouseID == 0 {
		return fmt.Errorf("OZON_WAREHOUSE_ID must be set (see the warehouses command)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newOzonClient(cfg, logger)
	if err != nil {
		return err
	}
	pusher := ozon.NewPusher(client, cfg.Ozon.ItemsPerMinute)

	updated, err := syncer.NewCatalog(db, client, logger).PushStocks(ctx, pusher, cfg.Ozon.WarehouseID)
	if err != nil {
		return err
	}
	logger.Info("stock push complete", "updated", updated)
	return nil
}
