package views

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filegate/internal/dbx"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Record(ctx context.Context, ownerID, requesterID int64, day string) error {
	query :=
		`INSERT INTO daily_views (owner_id, requester_id, day, views)
		 VALUES (?, ?, ?, 1)
		 ON CONFLICT (owner_id, requester_id, day) DO UPDATE SET views = daily_views.views + 1
		 `

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), ownerID, requesterID, day); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
