// Package events publishes domain events (deliveries, verification claims,
// auto-disabled channels) as JSON envelopes. Publishing is optional and
// best-effort: without a broker URL the no-op publisher is used.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/filegate/internal/common"
)

// Event types, used as routing keys.
const (
	TypeFileDelivered       = "file.delivered.v1"
	TypeVerificationClaimed = "verification.claimed.v1"
	TypeFSubChannelDisabled = "fsub.channel_disabled.v1"
)

type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Producer      string    `json:"producer"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type FileDelivered struct {
	OwnerID      int64  `json:"owner_id"`
	RequesterID  int64  `json:"requester_id"`
	FileUniqueID string `json:"file_unique_id"`
	MessageID    int    `json:"message_id"`
}

type VerificationClaimed struct {
	OwnerID      int64     `json:"owner_id"`
	RequesterID  int64     `json:"requester_id"`
	FileUniqueID string    `json:"file_unique_id"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type FSubChannelDisabled struct {
	OwnerID int64  `json:"owner_id"`
	Channel int64  `json:"channel"`
	Reason  string `json:"reason"`
}

// New wraps data into an envelope with a fresh id.
func New(eventType string, data any, correlationID string, now time.Time) Envelope {
	return Envelope{
		Meta: Meta{
			ID:            uuid.NewString(),
			Type:          eventType,
			Time:          now,
			Producer:      common.ServiceName,
			CorrelationID: correlationID,
		},
		Data: data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }
func (Nop) Close() error { return nil }
