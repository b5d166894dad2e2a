// Package repotest opens migrated in-memory SQLite databases for
// repository tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/server/migrations"
)

// NewSQLite returns a fresh, fully migrated in-memory database that is
// closed when the test ends. A single connection keeps every statement on
// the same in-memory database.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(dbx.SQLite.DriverName(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Up(context.Background(), db, dbx.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Exec runs a seeding statement and fails the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
