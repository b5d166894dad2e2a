package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/common"
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

func (r *SQLRepository) Get(ctx context.Context, ownerID int64, fileUniqueID string) (*models.FileRecord, error) {
	query :=
		`SELECT owner_id, file_unique_id, storage_message_id, file_name, stream_id, created_at
		 FROM files
		 WHERE owner_id = ? AND file_unique_id = ?
		 `

	f := &models.FileRecord{}
	var createdAt int64

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), ownerID, fileUniqueID).
		Scan(&f.OwnerID, &f.FileUniqueID, &f.StorageMessageID, &f.FileName, &f.StreamID, &createdAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	f.CreatedAt = time.Unix(createdAt, 0).UTC()
	return f, nil
}
