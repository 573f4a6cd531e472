package books

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/libris/internal/links"
	"github.com/JaimeStill/libris/pkg/imaging"
	"github.com/JaimeStill/libris/pkg/storage"
)

// System defines the public contract for catalog operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Ingest creates a book with its first version, or adds a version to an
	// existing book, depending on which shape req takes.
	Ingest(ctx context.Context, req Request) (*Entry, error)
	// Find returns a finalized book with a signed cover URL and its available versions.
	Find(ctx context.Context, slug string) (*Entry, error)
	// DownloadURL returns a signed URL for an available version's file.
	DownloadURL(ctx context.Context, versionID int64) (string, error)
	// Trash moves the caller's version to the trash.
	Trash(ctx context.Context, versionID, userID int64) (*Version, error)
	// Recover restores the caller's trashed version.
	Recover(ctx context.Context, versionID, userID int64) (*Version, error)
}

// Options configures the catalog system.
type Options struct {
	Covers imaging.Options
	Now    func() time.Time
}

type catalog struct {
	store  Store
	blobs  storage.System
	signer links.Signer
	covers imaging.Options
	now    func() time.Time
	logger *slog.Logger
}

// New creates the catalog system.
func New(
	store Store,
	blobs storage.System,
	signer links.Signer,
	opts Options,
	logger *slog.Logger,
) System {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &catalog{
		store:  store,
		blobs:  blobs,
		signer: signer,
		covers: opts.Covers,
		now:    now,
		logger: logger.With("system", "books"),
	}
}

func (c *catalog) Handler(maxUploadSize int64) *Handler {
	return NewHandler(c, c.logger, maxUploadSize)
}

func (c *catalog) Find(ctx context.Context, slug string) (*Entry, error) {
	book, err := c.store.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	versions, err := c.store.ListVersions(ctx, book.ID)
	if err != nil {
		return nil, err
	}

	c.signCover(ctx, &book)
	return &Entry{Book: book, Versions: versions}, nil
}

func (c *catalog) DownloadURL(ctx context.Context, versionID int64) (string, error) {
	v, err := c.store.FindVersion(ctx, versionID)
	if err != nil {
		return "", err
	}
	if !v.Available() {
		return "", ErrVersionNotFound
	}
	return c.signer.URL(ctx, v.File)
}

func (c *catalog) Trash(ctx context.Context, versionID, userID int64) (*Version, error) {
	v, err := c.owned(ctx, versionID, userID)
	if err != nil {
		return nil, err
	}
	if v.File == Pending {
		return nil, ErrVersionNotFound
	}
	if v.IsTrashed {
		return &v, nil
	}

	trashed, err := c.store.SetTrashed(ctx, versionID, true, c.now())
	if err != nil {
		return nil, err
	}

	c.logger.Info("version trashed", "version_id", versionID, "user_id", userID)
	return &trashed, nil
}

func (c *catalog) Recover(ctx context.Context, versionID, userID int64) (*Version, error) {
	v, err := c.owned(ctx, versionID, userID)
	if err != nil {
		return nil, err
	}
	if !v.IsTrashed {
		return &v, nil
	}

	recovered, err := c.store.SetTrashed(ctx, versionID, false, time.Time{})
	if err != nil {
		return nil, err
	}

	c.logger.Info("version recovered", "version_id", versionID, "user_id", userID)
	return &recovered, nil
}

func (c *catalog) owned(ctx context.Context, versionID, userID int64) (Version, error) {
	if userID <= 0 {
		return Version{}, ErrIdentityRequired
	}
	v, err := c.store.FindVersion(ctx, versionID)
	if err != nil {
		return Version{}, err
	}
	if v.UserID != userID {
		return Version{}, ErrNotOwner
	}
	return v, nil
}

// signCover fills CoverURL. Signing failures leave it empty.
func (c *catalog) signCover(ctx context.Context, b *Book) {
	if b.Thumbnail == "" || b.Thumbnail == Pending {
		return
	}
	url, err := c.signer.URL(ctx, b.Thumbnail)
	if err != nil {
		c.logger.Warn("cover signing failed", "book_id", b.ID, "error", err)
		return
	}
	b.CoverURL = url
}
