package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"partsync/internal/config"
	"partsync/internal/database"
	"partsync/internal/logging"
	"partsync/internal/ozon"
	"partsync/internal/ratelimit"
	"partsync/internal/supplier"
)

// setup loads configuration and builds the process logger. Every command
// starts here.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	return cfg, logger, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: 10,
		MinConns: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// openResolver acquires the browser session and wraps it in a resolver. The
// returned session must be closed by the caller.
func openResolver(cfg *config.Config, logger *slog.Logger) (*supplier.Resolver, *supplier.Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	opts := supplier.DefaultSessionOptions()
	opts.StatePath = cfg.Browser.StatePath
	opts.ProfileDir = cfg.Browser.ProfileDir
	opts.Headless = cfg.Browser.Headless
	opts.NavTimeout = cfg.Browser.NavTimeout
	opts.UserAgent = cfg.Browser.UserAgent
	opts.Locale = cfg.Browser.Locale

	session, err := supplier.OpenSession(opts, logger)
	if err != nil {
		return nil, nil, err
	}

	pacer := ratelimit.NewRandomPacer(cfg.Sync.PaceMin, cfg.Sync.PaceMax)
	diag := supplier.NewDiagnostics(cfg.Browser.DebugDir, logger)
	resolver := supplier.NewResolver(session, pacer, diag, logger,
		cfg.Sync.SupplierBaseURL, cfg.Browser.NavTimeout)
	return resolver, session, nil
}

func newOzonClient(cfg *config.Config, logger *slog.Logger) (*ozon.Client, error) {
	if err := cfg.ValidateOzon(); err != nil {
		return nil, err
	}
	return ozon.NewClient(cfg.Ozon.BaseURL, cfg.Ozon.ClientID, cfg.Ozon.APIKey, logger), nil
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
