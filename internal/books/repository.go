package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaimeStill/libris/pkg/repository"
)

const versionColumns = `id, book_id, user_id, file, content_type, size_bytes, page_count, views, is_trashed, trashed_at, created_at`

type pgStore struct {
	db *sql.DB
}

// NewRepository creates the PostgreSQL-backed Store.
func NewRepository(db *sql.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) FindAuthor(ctx context.Context, id int64) (Author, error) {
	a, err := repository.QueryOne(
		ctx, s.db,
		`SELECT id, name, country FROM authors WHERE id = $1`,
		[]any{id}, scanAuthor,
	)
	if err != nil {
		return Author{}, repository.MapError(err, ErrAuthorNotFound, ErrAuthorNotFound)
	}
	return a, nil
}

func (s *pgStore) FindAuthorByName(ctx context.Context, name, country string) (*Author, error) {
	a, err := repository.QueryOne(
		ctx, s.db,
		`SELECT id, name, country FROM authors WHERE lower(name) = lower($1) AND lower(country) = lower($2)`,
		[]any{name, country}, scanAuthor,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *pgStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	return repository.Exists(ctx, s.db, `SELECT EXISTS (SELECT 1 FROM books WHERE slug = $1)`, slug)
}

func (s *pgStore) BookExists(ctx context.Context, id int64) (bool, error) {
	return repository.Exists(
		ctx, s.db,
		`SELECT EXISTS (SELECT 1 FROM books WHERE id = $1 AND thumbnail <> $2)`,
		id, Pending,
	)
}

func (s *pgStore) CreatePlaceholder(ctx context.Context, p Placeholder) (Placeholder, error) {
	created, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (Placeholder, error) {
		if p.AuthorID == 0 {
			id, isNew, err := ensureAuthor(ctx, tx, p.AuthorName, p.AuthorCountry)
			if err != nil {
				return p, fmt.Errorf("insert author: %w", err)
			}
			p.AuthorID = id
			p.AuthorCreated = isNew
		}

		err := tx.QueryRowContext(
			ctx,
			`INSERT INTO books (slug, title, category, description, thumbnail, author_id)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			p.Slug, p.Title, p.Category, p.Description, Pending, p.AuthorID,
		).Scan(&p.BookID, &p.CreatedAt)
		if err != nil {
			return p, fmt.Errorf("insert book: %w", err)
		}

		err = tx.QueryRowContext(
			ctx,
			`INSERT INTO book_versions (book_id, user_id, file, content_type, size_bytes, page_count)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			p.BookID, p.UserID, Pending, p.ContentType, p.SizeBytes, p.PageCount,
		).Scan(&p.VersionID)
		if err != nil {
			return p, fmt.Errorf("insert version: %w", err)
		}

		return p, nil
	})
	if err != nil {
		return Placeholder{}, mapWriteError(err)
	}
	return created, nil
}

// ensureAuthor inserts the author unless a concurrent writer already has,
// returning the id and whether this call created the row.
func ensureAuthor(ctx context.Context, tx *sql.Tx, name, country string) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(
		ctx,
		`INSERT INTO authors (name, country) VALUES ($1, $2)
		 ON CONFLICT ((lower(name)), (lower(country))) DO NOTHING
		 RETURNING id`,
		name, country,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	err = tx.QueryRowContext(
		ctx,
		`SELECT id FROM authors WHERE lower(name) = lower($1) AND lower(country) = lower($2)`,
		name, country,
	).Scan(&id)
	return id, false, err
}

func (s *pgStore) FinalizePlaceholder(ctx context.Context, p Placeholder, thumbnail, file string) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE books SET thumbnail = $2 WHERE id = $1 AND thumbnail = $3`,
			p.BookID, thumbnail, Pending,
		); err != nil {
			return struct{}{}, fmt.Errorf("finalize book: %w", err)
		}
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE book_versions SET file = $2 WHERE id = $1 AND file = $3`,
			p.VersionID, file, Pending,
		); err != nil {
			return struct{}{}, fmt.Errorf("finalize version: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func (s *pgStore) DeletePlaceholder(ctx context.Context, p Placeholder) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM books WHERE id = $1 AND thumbnail = $2`,
			p.BookID, Pending,
		); err != nil {
			return struct{}{}, fmt.Errorf("delete book: %w", err)
		}

		if p.AuthorCreated {
			if _, err := tx.ExecContext(
				ctx,
				`DELETE FROM authors a WHERE a.id = $1
				 AND NOT EXISTS (SELECT 1 FROM books b WHERE b.author_id = a.id)`,
				p.AuthorID,
			); err != nil {
				return struct{}{}, fmt.Errorf("delete author: %w", err)
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *pgStore) InsertVersion(ctx context.Context, v NewVersion) (Version, error) {
	q := `INSERT INTO book_versions (book_id, user_id, file, content_type, size_bytes, page_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + versionColumns

	out, err := repository.QueryOne(
		ctx, s.db, q,
		[]any{v.BookID, v.UserID, v.File, v.ContentType, v.SizeBytes, v.PageCount},
		scanVersion,
	)
	if err != nil {
		return Version{}, mapWriteError(err)
	}
	return out, nil
}

func (s *pgStore) FindBySlug(ctx context.Context, slug string) (Book, error) {
	b, err := repository.QueryOne(
		ctx, s.db,
		`SELECT b.id, b.slug, b.title, b.category, b.description, b.thumbnail, b.views, b.created_at,
		        a.id, a.name, a.country
		 FROM books b JOIN authors a ON a.id = b.author_id
		 WHERE b.slug = $1 AND b.thumbnail <> $2`,
		[]any{slug, Pending}, scanBook,
	)
	if err != nil {
		return Book{}, repository.MapError(err, ErrNotFound, ErrSlugTaken)
	}
	return b, nil
}

func (s *pgStore) ListVersions(ctx context.Context, bookID int64) ([]Version, error) {
	return repository.QueryMany(
		ctx, s.db,
		`SELECT `+versionColumns+` FROM book_versions
		 WHERE book_id = $1 AND NOT is_trashed AND file <> $2
		 ORDER BY created_at, id`,
		[]any{bookID, Pending}, scanVersion,
	)
}

func (s *pgStore) FindVersion(ctx context.Context, id int64) (Version, error) {
	v, err := repository.QueryOne(
		ctx, s.db,
		`SELECT `+versionColumns+` FROM book_versions WHERE id = $1`,
		[]any{id}, scanVersion,
	)
	if err != nil {
		return Version{}, repository.MapError(err, ErrVersionNotFound, ErrVersionNotFound)
	}
	return v, nil
}

func (s *pgStore) SetTrashed(ctx context.Context, id int64, trashed bool, at time.Time) (Version, error) {
	var (
		q    string
		args []any
	)
	if trashed {
		q = `UPDATE book_versions SET is_trashed = true, trashed_at = $2
			WHERE id = $1 AND NOT is_trashed
			RETURNING ` + versionColumns
		args = []any{id, at}
	} else {
		q = `UPDATE book_versions SET is_trashed = false, trashed_at = NULL
			WHERE id = $1 AND is_trashed
			RETURNING ` + versionColumns
		args = []any{id}
	}

	v, err := repository.QueryOne(ctx, s.db, q, args, scanVersion)
	if errors.Is(err, sql.ErrNoRows) && trashed {
		return s.FindVersion(ctx, id)
	}
	if err != nil {
		return Version{}, repository.MapError(err, ErrVersionNotFound, ErrVersionNotFound)
	}
	return v, nil
}

// mapWriteError translates constraint violations on book and version inserts.
func mapWriteError(err error) error {
	switch {
	case repository.IsUniqueViolation(err):
		return ErrSlugTaken
	case repository.IsForeignKeyViolation(err):
		name := repository.ConstraintName(err)
		switch {
		case strings.Contains(name, "user_id"):
			return ErrUserNotFound
		case strings.Contains(name, "author_id"):
			return ErrAuthorNotFound
		default:
			return ErrNotFound
		}
	default:
		return err
	}
}

func scanAuthor(s repository.Scanner) (Author, error) {
	var a Author
	err := s.Scan(&a.ID, &a.Name, &a.Country)
	return a, err
}

func scanBook(s repository.Scanner) (Book, error) {
	var b Book
	err := s.Scan(
		&b.ID, &b.Slug, &b.Title, &b.Category, &b.Description, &b.Thumbnail, &b.Views, &b.CreatedAt,
		&b.Author.ID, &b.Author.Name, &b.Author.Country,
	)
	return b, err
}

func scanVersion(s repository.Scanner) (Version, error) {
	var (
		v         Version
		pageCount sql.NullInt32
		trashedAt sql.NullTime
	)
	err := s.Scan(
		&v.ID, &v.BookID, &v.UserID, &v.File, &v.ContentType, &v.SizeBytes,
		&pageCount, &v.Views, &v.IsTrashed, &trashedAt, &v.CreatedAt,
	)
	if err != nil {
		return v, err
	}
	if pageCount.Valid {
		n := int(pageCount.Int32)
		v.PageCount = &n
	}
	if trashedAt.Valid {
		t := trashedAt.Time
		v.TrashedAt = &t
	}
	return v, nil
}
