// Package dbopen opens SQLite databases with the pragmas coldtab relies on.
//
// Default pragmas:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// Usage:
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("archive.db", dbopen.WithMkdirAll())
//
// History snapshots are opened read-only:
//
//	db, err := dbopen.Open(copyPath, dbopen.Immutable())
//
// In tests:
//
//	db := dbopen.OpenMemory(t)
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

type config struct {
	driver      string
	busyTimeout int
	synchronous string
	foreignKeys bool
	readOnly    bool
	immutable   bool
	mkdirAll    bool
	schemas     []string
	ping        bool
}

func defaults() config {
	return config{
		driver:      "sqlite",
		busyTimeout: 10_000,
		synchronous: "NORMAL",
		foreignKeys: true,
		ping:        true,
	}
}

// Option customises Open behaviour.
type Option func(*config)

// WithDriver sets the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option { return func(c *config) { c.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithSchema queues inline SQL to execute after pragmas are applied.
func WithSchema(s string) Option { return func(c *config) { c.schemas = append(c.schemas, s) } }

// ReadOnly opens the database in read-only mode. Write pragmas (WAL,
// synchronous) are skipped since they would fail on a read-only handle.
func ReadOnly() Option { return func(c *config) { c.readOnly = true } }

// Immutable additionally promises SQLite that no other process writes the
// file. Used for the history snapshot, which is a private copy.
func Immutable() Option {
	return func(c *config) {
		c.readOnly = true
		c.immutable = true
	}
}

// WithoutPing skips the db.Ping() verification after opening.
func WithoutPing() Option { return func(c *config) { c.ping = false } }

// Open opens an SQLite database at path. The caller must blank-import the
// driver before calling Open:
//
//	import _ "modernc.org/sqlite"
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	dsn := path
	if cfg.readOnly {
		q := url.Values{}
		q.Set("mode", "ro")
		if cfg.immutable {
			q.Set("immutable", "1")
		}
		dsn = "file:" + path + "?" + q.Encode()
	}

	db, err := sql.Open(cfg.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}

	if err := applyPragmas(db, &cfg); err != nil {
		db.Close()
		return nil, err
	}

	for _, s := range cfg.schemas {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}

	if cfg.ping {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: ping: %w", err)
		}
	}

	return db, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
// MaxOpenConns(1) ensures all queries hit the same in-memory database
// (each connection to ":memory:" creates a separate one). The database is
// closed via t.Cleanup.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func applyPragmas(db *sql.DB, cfg *config) error {
	var pragmas []string

	if cfg.readOnly {
		pragmas = []string{
			fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		}
	} else {
		fk := "ON"
		if !cfg.foreignKeys {
			fk = "OFF"
		}
		pragmas = []string{
			fmt.Sprintf("PRAGMA foreign_keys = %s", fk),
			"PRAGMA journal_mode = WAL",
			fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
			fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
		}
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("dbopen: %s: %w", p, err)
		}
	}
	return nil
}
