package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filegate/internal/logging"
	"github.com/dmitrijs2005/filegate/internal/server/messenger"
	"github.com/dmitrijs2005/filegate/internal/server/metrics"
)

// ephemeralTimeout bounds the delete + notice pair of one fired task.
const ephemeralTimeout = 30 * time.Second

// EphemeralScheduler deletes delivered copies after a fixed delay. Tasks
// live in memory only and are lost on restart.
type EphemeralScheduler struct {
	client messenger.Client
	delay  time.Duration
	logger logging.Logger
	// afterFunc is time.AfterFunc; tests replace it.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewEphemeralScheduler(client messenger.Client, delay time.Duration, logger logging.Logger) *EphemeralScheduler {
	return &EphemeralScheduler{
		client:    client,
		delay:     delay,
		logger:    logger.With("module", "ephemeral"),
		afterFunc: time.AfterFunc,
	}
}

// Schedule arranges for the message to be deleted after the delay and
// returns immediately. The task does not inherit any request context.
func (s *EphemeralScheduler) Schedule(chatID int64, messageID int) {
	metrics.EphemeralPending.Inc()
	s.afterFunc(s.delay, func() {
		defer metrics.EphemeralPending.Dec()
		s.fire(chatID, messageID)
	})
}

func (s *EphemeralScheduler) fire(chatID int64, messageID int) {
	ctx, cancel := context.WithTimeout(context.Background(), ephemeralTimeout)
	defer cancel()

	if err := s.client.DeleteMessages(ctx, chatID, messageID); err != nil {
		metrics.EphemeralFiredTotal.WithLabelValues("delete_failed").Inc()
		s.logger.Debug(ctx, "ephemeral delete failed", "chat_id", chatID, "message_id", messageID, "error", err)
		return
	}
	metrics.EphemeralFiredTotal.WithLabelValues("deleted").Inc()

	if _, err := s.client.SendMessage(ctx, chatID, DeletionNotice(s.delay), nil); err != nil {
		s.logger.Debug(ctx, "deletion notice failed", "chat_id", chatID, "error", err)
	}
}

// DeletionNotice is the text sent after a delivered copy is removed.
func DeletionNotice(delay time.Duration) string {
	return fmt.Sprintf("🗑 File automatically deleted after %s.", humanDuration(delay))
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return plural(int(d.Round(time.Second)/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
