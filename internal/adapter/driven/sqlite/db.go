// Package sqlite persists mrpanel state (encrypted instance tokens) in a
// local SQLite database using the pure-Go modernc driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// basePragmas apply to every connection. File databases add WAL so the CLI
// can read tokens while a running server holds the writer.
var basePragmas = []string{
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"foreign_keys(ON)",
}

const (
	maxReaders = 4
	walPragma  = "journal_mode(WAL)"
)

// DB holds separate reader and writer pools over one database.
// The writer is limited to a single connection to avoid "database is locked".
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens dbPath with WAL mode and a busy timeout, pinging both pools.
func NewDB(dbPath string) (*DB, error) {
	return openPools(buildDSN("file:"+dbPath, nil, append([]string{walPragma}, basePragmas...)), dbPath)
}

// buildDSN appends plain query parameters and _pragma entries to base.
func buildDSN(base string, params, pragmas []string) string {
	all := make([]string, 0, len(params)+len(pragmas))
	all = append(all, params...)
	for _, p := range pragmas {
		all = append(all, "_pragma="+p)
	}
	return base + "?" + strings.Join(all, "&")
}

func openPools(dsn, path string) (*DB, error) {
	writer, err := openPool(dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader, err := openPool(dsn, maxReaders)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}

	return &DB{Writer: writer, Reader: reader, path: path}, nil
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxConns)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Path returns the database file path the DB was opened with.
func (db *DB) Path() string {
	return db.path
}

// Close closes both pools and returns the first error encountered.
func (db *DB) Close() error {
	var firstErr error

	if err := db.Reader.Close(); err != nil {
		firstErr = fmt.Errorf("close reader: %w", err)
	}

	if err := db.Writer.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close writer: %w", err)
	}

	return firstErr
}
