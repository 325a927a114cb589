// Package runlog is an ambient, supplementary audit log of orchestrator
// runs, persisted to Postgres, grounded on internal/database/db.go's
// pgxpool lifecycle and internal/pipeline/pipeline.go's raw-SQL
// ingestion_runs bookkeeping (retargeted from per-chain ingestion runs
// to per-supplier extraction runs). Per spec.md §3, the orchestrator's
// actual state is file-based; this package never gates a run and is
// safe to run without (Record* calls are best-effort, logged not
// propagated as run failures).
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store persists run records to a single fba_run_log table.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Connect opens a pgxpool-backed Store against connString. Callers
// that have no Postgres configured simply never construct a Store;
// every orchestrator.Deps field this package would touch is outside
// Deps entirely, so a nil *Store is never required.
func Connect(ctx context.Context, connString string, logger zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("runlog: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("runlog: ping: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Bootstrap creates fba_run_log if it does not already exist. It opens
// its own short-lived database/sql connection via lib/pq rather than
// reusing the pgxpool, mirroring the common split between a
// migration-time driver and a runtime driver.
func Bootstrap(connString string) error {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return fmt.Errorf("runlog: bootstrap open: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fba_run_log (
			id              TEXT PRIMARY KEY,
			supplier        TEXT NOT NULL,
			status          TEXT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			completed_at    TIMESTAMPTZ,
			products_extracted INT,
			products_matched   INT,
			products_qualified INT,
			error_message   TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("runlog: bootstrap create table: %w", err)
	}
	return nil
}

// RecordRunStart inserts a 'running' row and returns its ID, the way
// pipeline.createIngestionRun does for ingestion_runs.
func (s *Store) RecordRunStart(ctx context.Context, supplier string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO fba_run_log (id, supplier, status, started_at)
		VALUES ($1, $2, 'running', $3)
	`, id, supplier, time.Now())
	if err != nil {
		return "", fmt.Errorf("runlog: record start: %w", err)
	}
	return id, nil
}

// RecordRunComplete marks a run 'completed' with its final counters.
func (s *Store) RecordRunComplete(ctx context.Context, runID string, productsExtracted, productsMatched, productsQualified int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE fba_run_log
		SET status = 'completed', completed_at = $2,
		    products_extracted = $3, products_matched = $4, products_qualified = $5
		WHERE id = $1
	`, runID, time.Now(), productsExtracted, productsMatched, productsQualified)
	if err != nil {
		return fmt.Errorf("runlog: record complete: %w", err)
	}
	return nil
}

// RecordRunFailed marks a run 'failed' with the triggering error.
func (s *Store) RecordRunFailed(ctx context.Context, runID string, cause error) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE fba_run_log
		SET status = 'failed', completed_at = $2, error_message = $3
		WHERE id = $1
	`, runID, time.Now(), cause.Error())
	if err != nil {
		return fmt.Errorf("runlog: record failed: %w", err)
	}
	return nil
}
