// Package history records sweep runs and their events to a local
// SQLite database so past deletions can be audited after log rotation.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dirsweep/internal/sweep"
)

// DB manages the SQLite database holding sweep history
type DB struct {
	db *sql.DB
}

// Run is one recorded sweep invocation
type Run struct {
	ID           int64
	StartedAt    time.Time
	FinishedAt   time.Time
	Root         string
	DryRun       bool
	FilesDeleted int
	DirsDeleted  int
	BytesFreed   int64
}

// EventRecord is one persisted sweep event
type EventRecord struct {
	ID           int64
	RunID        int64
	Timestamp    time.Time
	Action       string
	Path         string
	AgeDays      int
	Size         int64
	ErrorMessage string
}

// Actions stored in the events table, matching the sweep log tags
const (
	ActionFile        = "FILE"
	ActionDir         = "DIR"
	ActionExcluded    = "EXCLUDED"
	ActionDeleteError = "DELETE_ERROR"
	ActionAccessError = "ACCESS_ERROR"
)

// Open creates the database connection and initializes the schema
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Exec instead of Ping so the database file gets created
	if _, err = db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode: the query tool can read while a sweep writes
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	h := &DB{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		root TEXT NOT NULL,
		dry_run INTEGER NOT NULL,
		files_deleted INTEGER NOT NULL DEFAULT 0,
		dirs_deleted INTEGER NOT NULL DEFAULT 0,
		bytes_freed INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		age_days INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_events_action ON events(action);
	CREATE INDEX IF NOT EXISTS idx_events_path ON events(path);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := h.db.Exec(schema)
	return err
}

// BeginRun inserts the run header row and returns its id
func (h *DB) BeginRun(start time.Time, root string, dryRun bool) (int64, error) {
	res, err := h.db.Exec(
		`INSERT INTO runs (started_at, root, dry_run) VALUES (?, ?, ?)`,
		start, root, boolToInt(dryRun),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RecordEvent persists one sweep event under the given run
func (h *DB) RecordEvent(runID int64, ev sweep.Event) error {
	_, err := h.db.Exec(
		`INSERT INTO events (run_id, timestamp, action, path, age_days, size, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now(), Action(ev), ev.Path, ev.AgeDays, ev.Size, ev.Err,
	)
	return err
}

// FinishRun completes the run header with final counts
func (h *DB) FinishRun(runID int64, end time.Time, res *sweep.Result) error {
	_, err := h.db.Exec(
		`UPDATE runs SET finished_at = ?, files_deleted = ?, dirs_deleted = ?, bytes_freed = ?
		 WHERE id = ?`,
		end, res.FilesDeleted, res.DirsDeleted, res.BytesFreed, runID,
	)
	return err
}

// Action maps an event to its stored action string
func Action(ev sweep.Event) string {
	switch ev.Kind {
	case sweep.EventFile:
		return ActionFile
	case sweep.EventDir:
		return ActionDir
	case sweep.EventExcluded:
		return ActionExcluded
	case sweep.EventDeleteError:
		return ActionDeleteError
	case sweep.EventAccessError:
		return ActionAccessError
	}
	return "UNKNOWN"
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (h *DB) Vacuum() error {
	_, err := h.db.Exec("VACUUM")
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
