package views

import "context"

// Store applies counted views to the relational store.
type Store interface {
	// Increment verifies that the version is available and owned by the
	// stated book and user, then increments the book, version and user
	// counters in one transaction. Nothing is incremented on error.
	Increment(ctx context.Context, versionID, bookID, userID int64) error
}
