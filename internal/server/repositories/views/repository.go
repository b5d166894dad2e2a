// Package views counts daily deliveries per (owner, requester).
package views

import "context"

type Repository interface {
	// Record adds one view for the given day ("2006-01-02").
	Record(ctx context.Context, ownerID, requesterID int64, day string) error
}
