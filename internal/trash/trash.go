package trash

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// pending mirrors the sentinel blob reference written during ingestion.
// A pending version never had a blob, so there is nothing to delete.
const pending = "pending"

// ErrInvalidLimit is returned for a non-positive candidate listing limit.
var ErrInvalidLimit = errors.New("limit must be positive")

// Candidate is a trashed version past the retention cutoff.
type Candidate struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	File      string    `json:"file"`
	TrashedAt time.Time `json:"trashed_at"`
}

// Report summarizes one reclamation run.
type Report struct {
	Cutoff     time.Time     `json:"cutoff"`
	Candidates int           `json:"candidates"`
	Reclaimed  []int64       `json:"reclaimed"`
	Failed     []int64       `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Batch is the outcome of one locked reclamation batch.
type Batch struct {
	Candidates []Candidate
	Deleted    []int64
}

// PurgeFunc deletes the blobs of a locked batch and returns the ids whose
// blobs are confirmed gone.
type PurgeFunc func(ctx context.Context, batch []Candidate) []int64

// Store is the relational side of reclamation.
type Store interface {
	// Candidates lists trashed versions with trashed_at at or before cutoff,
	// oldest first, without locking them.
	Candidates(ctx context.Context, cutoff time.Time, limit int) ([]Candidate, error)
	// Reclaim locks up to limit candidates with id greater than after,
	// passes them to purge, and deletes the returned ids that still match
	// the trashed and past-cutoff predicate, all in one transaction.
	// Rows locked by a concurrent writer are skipped.
	Reclaim(ctx context.Context, cutoff time.Time, after int64, limit int, purge PurgeFunc) (Batch, error)
}

// MapHTTPStatus maps reclamation errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
