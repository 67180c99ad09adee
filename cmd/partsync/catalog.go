package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"partsync/internal/syncer"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Mirror and reprice the marketplace catalog",
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Pull products, card info and dimensions into the local mirror",
	RunE:  runCatalogRefresh,
}

var catalogRepriceCmd = &cobra.Command{
	Use:   "reprice",
	Short: "Recalculate prices for every offer with a resolved supplier purchase",
	RunE:  runCatalogReprice,
}

func init() {
	catalogCmd.AddCommand(catalogRefreshCmd)
	catalogCmd.AddCommand(catalogRepriceCmd)
	rootCmd.AddCommand(catalogCmd)
}

func runCatalogRefresh(cmd *cobra.Command, _ []string) error {
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

	return syncer.NewCatalog(db, client, logger).Refresh(ctx)
}

func runCatalogReprice(cmd *cobra.Command, _ []string) error {
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

	catalog := syncer.NewCatalog(db, nil, logger)
	priced, err := catalog.Reprice(ctx)
	if err != nil {
		return err
	}
	logger.Info("reprice complete", "offers", priced)
	return nil
}
