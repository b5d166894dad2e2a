// Package settings stores per-owner access policy.
package settings

import (
	"context"

	"github.com/dmitrijs2005/filegate/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the owner never saved settings.
	Get(ctx context.Context, ownerID int64) (*models.OwnerSettings, error)
	// Update sets a single field (one of models.Setting*); a nil value clears it.
	Update(ctx context.Context, ownerID int64, field string, value any) error
	// EnsureDefaults creates an empty settings row unless one exists.
	EnsureDefaults(ctx context.Context, ownerID int64) error
}
