package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists last-run times so throttling survives across processes
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS module_runs (
		module TEXT PRIMARY KEY,
		last_run_unix_nano INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS breaker_state (
		name TEXT PRIMARY KEY,
		failures INTEGER NOT NULL,
		open_until_unix_nano INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// LastRun returns the last recorded run for module
func (s *SQLiteStore) LastRun(ctx context.Context, module string) (time.Time, error) {
	if module == "" {
		return time.Time{}, ErrInvalidModule
	}

	query := `SELECT last_run_unix_nano FROM module_runs WHERE module = ?`

	var nanos int64
	err := s.db.QueryRowContext(ctx, query, module).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNeverRun
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last run: %w", err)
	}
	return time.Unix(0, nanos), nil
}

// SetLastRun records a run for module, replacing any earlier one
func (s *SQLiteStore) SetLastRun(ctx context.Context, module string, at time.Time) error {
	if module == "" {
		return ErrInvalidModule
	}

	query := `
		INSERT INTO module_runs (module, last_run_unix_nano) VALUES (?, ?)
		ON CONFLICT(module) DO UPDATE SET last_run_unix_nano = excluded.last_run_unix_nano
	`
	if _, err := s.db.ExecContext(ctx, query, module, at.UnixNano()); err != nil {
		return fmt.Errorf("failed to save last run: %w", err)
	}
	return nil
}

// BreakerState returns the saved state for name
func (s *SQLiteStore) BreakerState(ctx context.Context, name string) (BreakerState, error) {
	if name == "" {
		return BreakerState{}, ErrInvalidModule
	}

	query := `SELECT failures, open_until_unix_nano FROM breaker_state WHERE name = ?`

	var failures int
	var openUntil int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&failures, &openUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return BreakerState{}, nil
	}
	if err != nil {
		return BreakerState{}, fmt.Errorf("failed to query breaker state: %w", err)
	}

	state := BreakerState{Failures: failures}
	if openUntil != 0 {
		state.OpenUntil = time.Unix(0, openUntil)
	}
	return state, nil
}

// SetBreakerState saves state for name
func (s *SQLiteStore) SetBreakerState(ctx context.Context, name string, state BreakerState) error {
	if name == "" {
		return ErrInvalidModule
	}

	var openUntil int64
	if !state.OpenUntil.IsZero() {
		openUntil = state.OpenUntil.UnixNano()
	}

	query := `
		INSERT INTO breaker_state (name, failures, open_until_unix_nano) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			failures = excluded.failures,
			open_until_unix_nano = excluded.open_until_unix_nano
	`
	if _, err := s.db.ExecContext(ctx, query, name, state.Failures, openUntil); err != nil {
		return fmt.Errorf("failed to save breaker state: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
