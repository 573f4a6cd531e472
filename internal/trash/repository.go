package trash

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JaimeStill/libris/pkg/repository"
)

type pgStore struct {
	db *sql.DB
}

// NewRepository creates the PostgreSQL-backed Store.
func NewRepository(db *sql.DB) Store {
	return &pgStore{db: db}
}

func scanCandidate(s repository.Scanner) (Candidate, error) {
	var c Candidate
	err := s.Scan(&c.ID, &c.BookID, &c.File, &c.TrashedAt)
	return c, err
}

func (s *pgStore) Candidates(ctx context.Context, cutoff time.Time, limit int) ([]Candidate, error) {
	return repository.QueryMany(
		ctx, s.db,
		`SELECT id, book_id, file, trashed_at FROM book_versions
		 WHERE is_trashed AND trashed_at <= $1
		 ORDER BY trashed_at, id
		 LIMIT $2`,
		[]any{cutoff, limit}, scanCandidate,
	)
}

func (s *pgStore) Reclaim(ctx context.Context, cutoff time.Time, after int64, limit int, purge PurgeFunc) (Batch, error) {
	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) (Batch, error) {
		var b Batch

		candidates, err := repository.QueryMany(
			ctx, tx,
			`SELECT id, book_id, file, trashed_at FROM book_versions
			 WHERE is_trashed AND trashed_at <= $1 AND id > $2
			 ORDER BY id
			 LIMIT $3
			 FOR UPDATE SKIP LOCKED`,
			[]any{cutoff, after, limit}, scanCandidate,
		)
		if err != nil {
			return b, fmt.Errorf("lock candidates: %w", err)
		}
		b.Candidates = candidates
		if len(candidates) == 0 {
			return b, nil
		}

		purged := purge(ctx, candidates)
		if len(purged) == 0 {
			return b, nil
		}

		deleted, err := repository.QueryMany(
			ctx, tx,
			`DELETE FROM book_versions
			 WHERE id = ANY($1) AND is_trashed AND trashed_at <= $2
			 RETURNING id`,
			[]any{purged, cutoff},
			func(s repository.Scanner) (int64, error) {
				var id int64
				err := s.Scan(&id)
				return id, err
			},
		)
		if err != nil {
			return b, fmt.Errorf("delete versions: %w", err)
		}
		b.Deleted = deleted

		return b, nil
	})
}
