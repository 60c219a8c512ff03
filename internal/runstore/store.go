// Package runstore persists a journal of pipeline runs and per-window
// progress in SQLite. The journal is purely observational: the pipeline
// writes to it as windows advance and the CLI reads it back for history.
package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; stale databases must be
// deleted rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages run journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run journal database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun records a new run with one pending window row per window.
func (s *Store) CreateRun(ctx context.Context, sourceChars, windowCount int, outputDir string) (*Run, error) {
	now := time.Now().UTC()
	var runID int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO runs (status, source_chars, window_count, output_dir, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			string(RunRunning), sourceChars, windowCount, outputDir, formatTime(now), formatTime(now))
		if err != nil {
			return err
		}
		runID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	for index := 0; index < windowCount; index++ {
		if err := s.execWithRetry(ctx,
			"INSERT INTO windows (run_id, window_index, status, updated_at) VALUES (?, ?, ?, ?)",
			runID, index, string(WindowPending), formatTime(now)); err != nil {
			return nil, fmt.Errorf("create window row %d: %w", index, err)
		}
	}

	return &Run{
		ID:          runID,
		Status:      RunRunning,
		SourceChars: sourceChars,
		WindowCount: windowCount,
		OutputDir:   outputDir,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateWindow advances one window's journal row.
func (s *Store) UpdateWindow(ctx context.Context, runID int64, index int, status WindowStatus, stage, outputPath, errMsg string) error {
	if err := s.execWithRetry(ctx,
		"UPDATE windows SET status = ?, stage = ?, output_path = ?, error = ?, updated_at = ? WHERE run_id = ? AND window_index = ?",
		string(status), stage, outputPath, errMsg, formatTime(time.Now().UTC()), runID, index); err != nil {
		return fmt.Errorf("update window %d: %w", index, err)
	}
	return nil
}

// FinishRun records a run's terminal status.
func (s *Store) FinishRun(ctx context.Context, runID int64, status RunStatus) error {
	if err := s.execWithRetry(ctx,
		"UPDATE runs SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatTime(time.Now().UTC()), runID); err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status, source_chars, window_count, output_dir, created_at, updated_at FROM runs ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var status, createdAt, updatedAt string
		if err := rows.Scan(&run.ID, &status, &run.SourceChars, &run.WindowCount, &run.OutputDir, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = RunStatus(status)
		run.CreatedAt = parseTime(createdAt)
		run.UpdatedAt = parseTime(updatedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListWindows returns a run's window rows ordered by index.
func (s *Store) ListWindows(ctx context.Context, runID int64) ([]Window, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, window_index, status, stage, output_path, error, updated_at FROM windows WHERE run_id = ? ORDER BY window_index",
		runID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var windows []Window
	for rows.Next() {
		var window Window
		var status, updatedAt string
		if err := rows.Scan(&window.RunID, &window.Index, &status, &window.Stage, &window.OutputPath, &window.Error, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		window.Status = WindowStatus(status)
		window.UpdatedAt = parseTime(updatedAt)
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
