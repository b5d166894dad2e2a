package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/events"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
)

// emit publishes a domain event best-effort; failures are only logged.
func emit(ctx context.Context, pub events.Publisher, logger logging.Logger, eventType string, data any, now time.Time) {
	if pub == nil {
		return
	}
	e := events.New(eventType, data, messenger.UpdateID(ctx), now)
	if err := pub.Publish(ctx, e); err != nil {
		logger.Warn(ctx, "event publish failed", "type", eventType, "error", err)
	}
}
