package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/dbx"
	"github.com/dmitrijs2005/filegate/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Claim(ctx context.Context, g models.VerificationGrant) error {
	query :=
		`INSERT INTO verification_grants (owner_id, requester_id, file_unique_id, claimed_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, requester_id, file_unique_id) DO UPDATE SET
		   claimed_at = excluded.claimed_at,
		   expires_at = excluded.expires_at
		 `

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		g.OwnerID, g.RequesterID, g.FileUniqueID, g.ClaimedAt.Unix(), g.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) IsValidForOwner(ctx context.Context, ownerID, requesterID int64, now time.Time) (bool, error) {
	query :=
		`SELECT 1 FROM verification_grants
		 WHERE owner_id = ? AND requester_id = ? AND expires_at > ?
		 LIMIT 1
		 `
	return r.exists(ctx, query, ownerID, requesterID, now.Unix())
}

func (r *SQLRepository) IsValidForFile(ctx context.Context, ownerID, requesterID int64, fileUniqueID string, now time.Time) (bool, error) {
	query :=
		`SELECT 1 FROM verification_grants
		 WHERE owner_id = ? AND requester_id = ? AND file_unique_id = ? AND expires_at > ?
		 LIMIT 1
		 `
	return r.exists(ctx, query, ownerID, requesterID, fileUniqueID, now.Unix())
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM verification_grants WHERE expires_at <= ?`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}
