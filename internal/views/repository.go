package views

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JaimeStill/libris/pkg/repository"
)

// pending mirrors the sentinel blob reference written during ingestion.
const pending = "pending"

type pgStore struct {
	db *sql.DB
}

// NewRepository creates the PostgreSQL-backed Store.
func NewRepository(db *sql.DB) Store {
	return &pgStore{db: db}
}

type owner struct {
	bookID    int64
	userID    int64
	file      string
	isTrashed bool
}

func (s *pgStore) Increment(ctx context.Context, versionID, bookID, userID int64) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		var none struct{}

		o, err := repository.QueryOne(
			ctx, tx,
			`SELECT book_id, user_id, file, is_trashed FROM book_versions WHERE id = $1`,
			[]any{versionID},
			func(sc repository.Scanner) (owner, error) {
				var o owner
				err := sc.Scan(&o.bookID, &o.userID, &o.file, &o.isTrashed)
				return o, err
			},
		)
		if err != nil {
			return none, repository.MapError(err, ErrVersionNotFound, ErrVersionNotFound)
		}
		if o.file == pending || o.isTrashed {
			return none, ErrVersionNotFound
		}
		if o.bookID != bookID || o.userID != userID {
			return none, ErrVersionMismatch
		}

		steps := []struct {
			name  string
			query string
			id    int64
		}{
			{"book", `UPDATE books SET views = views + 1 WHERE id = $1`, bookID},
			{"version", `UPDATE book_versions SET views = views + 1 WHERE id = $1`, versionID},
			{"user", `UPDATE users SET total_views = total_views + 1 WHERE id = $1`, userID},
		}
		for _, step := range steps {
			if err := repository.ExecExpectOne(ctx, tx, step.query, step.id); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return none, fmt.Errorf("increment %s %d: %w", step.name, step.id, ErrVersionMismatch)
				}
				return none, fmt.Errorf("increment %s %d: %w", step.name, step.id, err)
			}
		}

		return none, nil
	})
	return err
}
