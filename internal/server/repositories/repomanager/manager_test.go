package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/server/models"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestFactories_ReturnRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewRepositoryManager(dbx.Postgres)

	assert.NotNil(t, m.Files(db))
	assert.NotNil(t, m.Settings(db))
	assert.NotNil(t, m.Grants(db))
	assert.NotNil(t, m.Users(db))
	assert.NotNil(t, m.Views(db))
}

func TestRunMigrations_PassesDialect(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var got dbx.Dialect
	orig := migrateUp
	migrateUp = func(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
		got = d
		return nil
	}
	defer func() { migrateUp = orig }()

	require.NoError(t, NewRepositoryManager(dbx.Postgres).RunMigrations(context.Background(), db))
	assert.Equal(t, dbx.Postgres, got)
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := migrateUp
	migrateUp = func(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
		return errors.New("boom")
	}
	defer func() { migrateUp = orig }()

	err := NewRepositoryManager(dbx.SQLite).RunMigrations(context.Background(), db)
	require.EqualError(t, err, "boom")
}

// End to end on SQLite: migrate, then use repositories inside one transaction.
func TestSQLite_MigrateAndTransact(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	m := NewRepositoryManager(dbx.SQLite)
	require.NoError(t, m.RunMigrations(ctx, db))

	now := time.Unix(1750000000, 0).UTC()

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := m.Users(tx).Touch(ctx, 7, now); err != nil {
			return err
		}
		return m.Grants(tx).Claim(ctx, models.VerificationGrant{
			OwnerID: 1001, RequesterID: 7, FileUniqueID: "f",
			ClaimedAt: now, ExpiresAt: now.Add(time.Hour),
		})
	})
	require.NoError(t, err)

	ok, err := m.Grants(db).IsValidForOwner(ctx, 1001, 7, now)
	require.NoError(t, err)
	assert.True(t, ok)
}
