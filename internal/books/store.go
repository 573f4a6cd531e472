package books

import (
	"context"
	"time"
)

// Store is the relational persistence the catalog depends on.
// Lookups that find nothing return the matching Err*NotFound.
type Store interface {
	FindAuthor(ctx context.Context, id int64) (Author, error)
	// FindAuthorByName matches name and country case-insensitively and
	// returns nil when no author matches.
	FindAuthorByName(ctx context.Context, name, country string) (*Author, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// BookExists reports whether a finalized book with id exists.
	BookExists(ctx context.Context, id int64) (bool, error)

	// CreatePlaceholder writes the staged author (when p.AuthorID is zero),
	// the book, and its first version with Pending blob references in one
	// transaction. A slug collision returns ErrSlugTaken.
	CreatePlaceholder(ctx context.Context, p Placeholder) (Placeholder, error)
	// FinalizePlaceholder replaces both Pending references in one transaction.
	FinalizePlaceholder(ctx context.Context, p Placeholder, thumbnail, file string) error
	// DeletePlaceholder removes the pending book, cascading to its version,
	// and the author when the placeholder created it and nothing else uses it.
	DeletePlaceholder(ctx context.Context, p Placeholder) error

	InsertVersion(ctx context.Context, v NewVersion) (Version, error)

	FindBySlug(ctx context.Context, slug string) (Book, error)
	// ListVersions returns the available versions of a book, oldest first.
	ListVersions(ctx context.Context, bookID int64) ([]Version, error)
	FindVersion(ctx context.Context, id int64) (Version, error)
	// SetTrashed marks or clears a version's trash state. Setting returns
	// the version unchanged when it is already trashed; clearing returns
	// ErrVersionNotFound when it is no longer trashed or no longer exists.
	SetTrashed(ctx context.Context, id int64, trashed bool, at time.Time) (Version, error)
}
