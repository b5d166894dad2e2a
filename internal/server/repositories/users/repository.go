// Package users keeps a registry of accounts that started the bot.
package users

import (
	"context"
	"time"
)

type Repository interface {
	// Touch registers the user on first contact and bumps last_seen_at after.
	// It reports whether the user was new.
	Touch(ctx context.Context, userID int64, now time.Time) (bool, error)
}
