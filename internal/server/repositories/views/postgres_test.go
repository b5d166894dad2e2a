package views

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/filegate/internal/dbx"
)

func TestRecord(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLRepository(db, dbx.Postgres)

	q := `(?s)^INSERT\s+INTO\s+daily_views\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*1\)\s*ON\s+CONFLICT\s*\(owner_id,\s*requester_id,\s*day\)\s*DO\s+UPDATE\s+SET\s+views\s*=\s*daily_views\.views\s*\+\s*1`
	mock.ExpectExec(q).WithArgs(int64(1001), int64(7), "2026-05-01").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WillReturnError(errors.New("db down"))

	require.NoError(t, repo.Record(context.Background(), 1001, 7, "2026-05-01"))
	require.ErrorContains(t, repo.Record(context.Background(), 1001, 7, "2026-05-01"), "db down")
	require.NoError(t, mock.ExpectationsWereMet())
}
