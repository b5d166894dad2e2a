// Package grants persists verification grants.
package grants

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filegate/internal/server/models"
)

type Repository interface {
	// Claim creates or refreshes the grant for (owner, requester, file).
	Claim(ctx context.Context, g models.VerificationGrant) error
	// IsValidForOwner reports whether any grant of requester for owner's
	// files is still unexpired at now.
	IsValidForOwner(ctx context.Context, ownerID, requesterID int64, now time.Time) (bool, error)
	// IsValidForFile is IsValidForOwner narrowed to one file.
	IsValidForFile(ctx context.Context, ownerID, requesterID int64, fileUniqueID string, now time.Time) (bool, error)
	// DeleteExpired removes grants that expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
