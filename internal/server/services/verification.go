package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/config"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
	"github.com/dmitrijs2005/filegate/internal/server/models"
	"github.com/dmitrijs2005/filegate/internal/server/repositories/grants"
	"github.com/dmitrijs2005/filegate/internal/timex"
	"github.com/dmitrijs2005/filegate/internal/tracing"
)

// VerificationService issues and checks time-limited verification grants.
type VerificationService struct {
	grants grants.Repository
	ttl    time.Duration
	scope  string
	events events.Publisher
	clock  timex.Clock
	logger logging.Logger
}

func NewVerificationService(g grants.Repository, ttl time.Duration, scope string, pub events.Publisher, clock timex.Clock, logger logging.Logger) *VerificationService {
	return &VerificationService{
		grants: g,
		ttl:    ttl,
		scope:  scope,
		events: pub,
		clock:  clock,
		logger: logger.With("module", "verification"),
	}
}

// TTL is how long a claimed grant stays valid.
func (s *VerificationService) TTL() time.Duration { return s.ttl }

// Claim grants requester access to owner's files for one TTL from now.
// Re-claiming refreshes the expiry.
func (s *VerificationService) Claim(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) error {
	ctx, span := tracing.Tracer().Start(ctx, "verification.Claim")
	defer span.End()
	span.SetAttributes(attribute.Int64("owner_id", ownerID), attribute.Int64("requester_id", requesterID))

	now := s.clock()
	g := models.VerificationGrant{
		OwnerID:      ownerID,
		RequesterID:  requesterID,
		FileUniqueID: fileUniqueID,
		ClaimedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}
	if err := s.grants.Claim(ctx, g); err != nil {
		span.RecordError(err)
		return fmt.Errorf("error claiming verification: %w", err)
	}

	metrics.VerificationClaimsTotal.Inc()
	s.logger.Info(ctx, "verification claimed", "owner_id", ownerID, "requester_id", requesterID, "file", fileUniqueID)

	emit(ctx, s.events, s.logger, events.TypeVerificationClaimed, events.VerificationClaimed{
		OwnerID:      ownerID,
		RequesterID:  requesterID,
		FileUniqueID: fileUniqueID,
		ExpiresAt:    g.ExpiresAt,
	}, now)
	return nil
}

// IsValid reports whether requester holds an unexpired grant. With the
// owner scope any grant for the owner counts; with the file scope only a
// grant for fileUniqueID does.
func (s *VerificationService) IsValid(ctx context.Context, ownerID, requesterID int64, fileUniqueID string) (bool, error) {
	now := s.clock()

	var (
		ok  bool
		err error
	)
	if s.scope == config.ScopeFile {
		ok, err = s.grants.IsValidForFile(ctx, ownerID, requesterID, fileUniqueID, now)
	} else {
		ok, err = s.grants.IsValidForOwner(ctx, ownerID, requesterID, now)
	}
	if err != nil {
		return false, fmt.Errorf("error checking verification: %w", err)
	}
	return ok, nil
}

// Sweep removes grants that expired more than one TTL ago.
func (s *VerificationService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.grants.DeleteExpired(ctx, s.clock().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	metrics.GrantsSweptTotal.Add(float64(n))
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *VerificationService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error(ctx, "grant sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug(ctx, "expired grants removed", "count", n)
			}
		}
	}
}
