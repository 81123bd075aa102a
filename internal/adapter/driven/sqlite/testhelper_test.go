package sqlite

import (
	"net/url"
	"testing"
)

// setupTestDB opens a migrated in-memory database named after the test.
// cache=shared lets the reader and writer pools see the same data.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// No WAL for in-memory databases.
	dsn := buildDSN("file:"+url.PathEscape(t.Name()), []string{"mode=memory", "cache=shared"}, basePragmas)

	db, err := openPools(dsn, dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
