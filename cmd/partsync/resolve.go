package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <pcode>",
	Short: "Resolve one part code and print its snapshot",
	Long: "Runs a single resolution cycle for the given part code and prints the\n" +
		"resulting snapshot (brand, number, detail URL, first offer) as JSON.\n" +
		"Useful for checking the session and selectors without touching the database.",
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, session, err := openResolver(cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := resolver.EnsureAuthenticated(ctx); err != nil {
		return err
	}

	snap, err := resolver.Snapshot(ctx, args[0], "")
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
