package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"admem/internal/logging"
)

// timeFormat is the stored timestamp layout. Fixed-width nanoseconds keep
// lexicographic order equal to chronological order, which the timeline and
// listRecent queries rely on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Options configure the database connection
type Options struct {
	// Path is the SQLite database file
	Path string
	// BusyTimeoutMs is how long a writer waits on a locked database
	BusyTimeoutMs int
	// MaxOpenConns bounds the connection pool; when exhausted, queries wait
	// rather than fail
	MaxOpenConns int
	// MaxIdleConns is the idle pool size
	MaxIdleConns int
}

// DB is a lazily-connected database handle with transaction helpers. The
// connection is established on first use and reused afterward; a failed
// connection is retried on the next call.
type DB struct {
	opts   Options
	logger *logging.Logger

	mu   sync.Mutex
	conn *sql.DB
}

// NewDB creates a handle without touching the filesystem
func NewDB(opts Options, logger *logging.Logger) *DB {
	if opts.BusyTimeoutMs <= 0 {
		opts.BusyTimeoutMs = 5000
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 2
	}
	return &DB{opts: opts, logger: logger}
}

// ensure opens the connection and initializes the schema if needed
func (db *DB) ensure() (*sql.DB, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn != nil {
		return db.conn, nil
	}

	if dir := filepath.Dir(db.opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", db.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(db.opts.MaxOpenConns)
	conn.SetMaxIdleConns(db.opts.MaxIdleConns)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		fmt.Sprintf("PRAGMA busy_timeout=%d", db.opts.BusyTimeoutMs),
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	db.conn = conn

	if err := db.migrate(); err != nil {
		conn.Close()
		db.conn = nil
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	db.logger.Debug("Database connected", map[string]interface{}{
		"path": db.opts.Path,
	})

	return db.conn, nil
}

// Close closes the connection if one was established
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conn != nil {
		err := db.conn.Close()
		db.conn = nil
		return err
	}
	return nil
}

// Exec executes a statement, connecting first if necessary
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	conn, err := db.ensure()
	if err != nil {
		return nil, err
	}
	return conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	conn, err := db.ensure()
	if err != nil {
		return nil, err
	}
	return conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row. Connection errors
// surface on Scan.
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	conn, err := db.ensure()
	if err != nil {
		// database/sql has no way to construct an errored Row; run the query
		// against a closed pool so Scan reports the failure.
		broken, _ := sql.Open("sqlite", ":memory:")
		broken.Close()
		return broken.QueryRow(query, args...)
	}
	return conn.QueryRow(query, args...)
}

// WithTx executes fn within a transaction, rolling back on error or panic
func (db *DB) WithTx(fn func(*sql.Tx) error) error {
	conn, err := db.ensure()
	if err != nil {
		return err
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error("Transaction rollback failed", map[string]interface{}{
				"error":         err.Error(),
				"rollbackError": rbErr.Error(),
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		// Rows written by external tooling may carry plain RFC3339
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func (db *DB) now() time.Time {
	return time.Now().UTC()
}
