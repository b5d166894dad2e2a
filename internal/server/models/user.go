package models

import "time"

type User struct {
	ID         int64
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// DailyView counts deliveries of an owner's files to one requester per day.
type DailyView struct {
	OwnerID     int64
	RequesterID int64
	Day         string
	Views       int
}

// PendingDeletion is an in-memory record of a delivered copy awaiting removal.
type PendingDeletion struct {
	ChatID    int64
	MessageID int
	FireAt    time.Time
}
