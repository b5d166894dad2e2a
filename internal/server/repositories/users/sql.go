package users

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/dbx"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Touch(ctx context.Context, userID int64, now time.Time) (bool, error) {
	insert :=
		`INSERT INTO users (id, created_at, last_seen_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING
		 `

	ts := now.Unix()

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(insert), userID, ts, ts)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	update := `UPDATE users SET last_seen_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(update), ts, userID); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return false, nil
}
