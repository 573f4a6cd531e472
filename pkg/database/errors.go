package database

import "errors"

var (
	// ErrNotReady is returned before the startup ping has succeeded and
	// after shutdown has begun.
	ErrNotReady = errors.New("database not ready")
	// ErrUnavailable wraps a failed ping against an established pool.
	ErrUnavailable = errors.New("database unavailable")
)
