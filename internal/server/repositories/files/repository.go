// Package files reads stored file metadata.
package files

import (
	"context"

	"github.com/dmitrijs2005/filegate/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when no such file exists.
	Get(ctx context.Context, ownerID int64, fileUniqueID string) (*models.FileRecord, error)
}
