package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"partsync/internal/events"
	"partsync/internal/syncer"
)

var syncNoEvents bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one supplier sweep over all due part codes",
	Long: "Opens the browser session, verifies it is still authenticated and walks every\n" +
		"pending or stale part through the portal, saving snapshots and publishing\n" +
		"offer events.",
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncNoEvents, "no-events", false, "Skip publishing offer events to Redis")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
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

	resolver, session, err := openResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	var publisher syncer.SnapshotPublisher
	if !syncNoEvents {
		rdb := newRedisClient(cfg)
		defer rdb.Close()
		publisher = events.NewPublisher(rdb, logger)
	}

	s := syncer.New(db, resolver, publisher, logger, syncer.Options{
		MaxAge:    cfg.Sync.MaxAge,
		BatchSize: cfg.Sync.BatchSize,
	})
	return s.SyncSupplier(ctx)
}
