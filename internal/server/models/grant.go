package models

import "time"

// VerificationGrant lets a requester fetch an owner's files until ExpiresAt.
type VerificationGrant struct {
	OwnerID      int64
	RequesterID  int64
	FileUniqueID string
	ClaimedAt    time.Time
	ExpiresAt    time.Time
}

// ValidAt reports whether the grant is still in force at t.
func (g VerificationGrant) ValidAt(t time.Time) bool {
	return t.Before(g.ExpiresAt)
}
