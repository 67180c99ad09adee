package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SyncRun is the bookkeeping row of one batch operation: a supplier sweep, a
// catalog refresh or a price/stock push.
type SyncRun struct {
	ID         uuid.UUID  `db:"id"`
	Kind       string     `db:"kind"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Total      int        `db:"total"`
	Succeeded  int        `db:"succeeded"`
	Failed     int        `db:"failed"`
	Error      string     `db:"error"`
}

// StartRun opens a run record and returns its ID for the final FinishRun.
func (db *DB) StartRun(ctx context.Context, kind string, total int) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO sync_runs (id, kind, total)
		VALUES ($1, $2, $3)`

	if _, err := db.pool.Exec(ctx, query, id, kind, total); err != nil {
		return uuid.Nil, fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run record with its final counters. runErr may be nil.
func (db *DB) FinishRun(ctx context.Context, id uuid.UUID, succeeded, failed int, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	query := `
		UPDATE sync_runs SET
			finished_at = CURRENT_TIMESTAMP,
			succeeded = $2,
			failed = $3,
			error = $4
		WHERE id = $1`

	if _, err := db.pool.Exec(ctx, query, id, succeeded, failed, errMsg); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run of a kind, or nil if none exist.
func (db *DB) LastRun(ctx context.Context, kind string) (*SyncRun, error) {
	query := `
		SELECT id, kind, started_at, finished_at, total, succeeded, failed, error
		FROM sync_runs
		WHERE kind = $1
		ORDER BY started_at DESC
		LIMIT 1`

	r := &SyncRun{}
	err := db.pool.QueryRow(ctx, query, kind).Scan(
		&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt,
		&r.Total, &r.Succeeded, &r.Failed, &r.Error,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return r, nil
}
