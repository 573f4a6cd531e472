package books

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/libris/pkg/storage"
)

// SagaState is the position of a new-book ingestion across both stores.
type SagaState string

const (
	SagaNew        SagaState = "new"
	SagaPending    SagaState = "pending"
	SagaFinalized  SagaState = "finalized"
	SagaRolledBack SagaState = "rolled_back"
)

// ErrSagaTransition is returned when a step is invoked from the wrong state.
var ErrSagaTransition = errors.New("invalid ingestion state transition")

// Saga drives one new book through placeholder, finalize, or rollback.
//
//	new --Begin--> pending --Finalize--> finalized
//	                       --Rollback--> rolled_back
//
// A failed Finalize leaves the saga pending so the caller can roll back.
type Saga struct {
	store  Store
	blobs  storage.System
	logger *slog.Logger

	mu       sync.Mutex
	state    SagaState
	p        Placeholder
	uploaded []string
}

// NewSaga creates a saga in the new state.
func NewSaga(store Store, blobs storage.System, logger *slog.Logger) *Saga {
	return &Saga{
		store:  store,
		blobs:  blobs,
		logger: logger,
		state:  SagaNew,
	}
}

// State returns the current state.
func (s *Saga) State() SagaState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Placeholder returns the relational placeholder written by Begin.
func (s *Saga) Placeholder() Placeholder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// Begin writes the placeholder rows and moves to pending.
func (s *Saga) Begin(ctx context.Context, p Placeholder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SagaNew {
		return fmt.Errorf("%w: begin from %s", ErrSagaTransition, s.state)
	}

	created, err := s.store.CreatePlaceholder(ctx, p)
	if err != nil {
		return err
	}

	s.p = created
	s.state = SagaPending
	s.logger.Info(
		"ingestion pending",
		"book_id", created.BookID,
		"version_id", created.VersionID,
		"slug", created.Slug,
		"author_created", created.AuthorCreated,
	)
	return nil
}

// Uploaded records a blob written on behalf of the saga so rollback can remove it.
// Safe to call from concurrent uploads.
func (s *Saga) Uploaded(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded = append(s.uploaded, key)
}

// Finalize swaps the pending references for the uploaded blob keys.
func (s *Saga) Finalize(ctx context.Context, thumbnail, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SagaPending {
		return fmt.Errorf("%w: finalize from %s", ErrSagaTransition, s.state)
	}

	if err := s.store.FinalizePlaceholder(ctx, s.p, thumbnail, file); err != nil {
		return fmt.Errorf("finalize book %d: %w", s.p.BookID, err)
	}

	s.state = SagaFinalized
	s.logger.Info("ingestion finalized", "book_id", s.p.BookID, "version_id", s.p.VersionID)
	return nil
}

// Rollback deletes any blobs recorded with Uploaded, then the placeholder rows.
// Blob delete failures are logged and leave orphans; a relational failure is
// returned and the saga stays pending.
func (s *Saga) Rollback(ctx context.Context, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SagaPending {
		return fmt.Errorf("%w: rollback from %s", ErrSagaTransition, s.state)
	}

	for _, key := range s.uploaded {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("compensating blob delete failed", "key", key, "error", err)
		}
	}
	s.uploaded = nil

	if err := s.store.DeletePlaceholder(ctx, s.p); err != nil {
		s.logger.Error(
			"ingestion rollback failed",
			"book_id", s.p.BookID,
			"cause", cause,
			"error", err,
		)
		return fmt.Errorf("rollback book %d: %w", s.p.BookID, err)
	}

	s.state = SagaRolledBack
	s.logger.Warn(
		"ingestion rolled back",
		"book_id", s.p.BookID,
		"slug", s.p.Slug,
		"cause", cause,
	)
	return nil
}
