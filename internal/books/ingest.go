package books

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/libris/pkg/imaging"
	"github.com/JaimeStill/libris/pkg/storage"
)

func (c *catalog) Ingest(ctx context.Context, req Request) (*Entry, error) {
	switch {
	case req.BookID != nil && req.Book != nil, req.BookID == nil && req.Book == nil:
		return nil, ErrInvalidRequest
	case req.UserID <= 0:
		return nil, ErrIdentityRequired
	case req.File == nil || len(req.File.Data) == 0:
		return nil, ErrMissingFile
	case req.BookID != nil:
		return c.addVersion(ctx, *req.BookID, req.UserID, req.File)
	default:
		return c.createBook(ctx, req.Book, req.UserID, req.File)
	}
}

func (c *catalog) createBook(ctx context.Context, nb *NewBook, userID int64, file *Upload) (*Entry, error) {
	title := NormalizeText(nb.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if nb.Thumbnail == nil || len(nb.Thumbnail.Data) == 0 {
		return nil, ErrMissingThumbnail
	}

	author, err := c.resolveAuthor(ctx, nb.Author)
	if err != nil {
		return nil, err
	}

	slug := Slug(title, author.Name)
	if slug == "" {
		return nil, ErrMissingTitle
	}

	taken, err := c.store.SlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	}
	if taken {
		return nil, ErrSlugTaken
	}

	cover, err := imaging.Normalize(bytes.NewReader(nb.Thumbnail.Data), c.covers)
	if err != nil {
		return nil, err
	}

	contentType := DetectContentType(file.ContentType, file.Data)
	now := c.now()
	thumbKey, fileKey := objectKeys(nb.Thumbnail.Name, file.Name, now)

	saga := NewSaga(c.store, c.blobs, c.logger)
	err = saga.Begin(ctx, Placeholder{
		Slug:          slug,
		Title:         title,
		Category:      NormalizeText(nb.Category),
		Description:   strings.TrimSpace(nb.Description),
		AuthorID:      author.ID,
		AuthorName:    author.Name,
		AuthorCountry: author.Country,
		UserID:        userID,
		ContentType:   contentType,
		SizeBytes:     int64(len(file.Data)),
		PageCount:     pageCount(c.logger, file.Data, contentType),
	})
	if err != nil {
		return nil, err
	}

	// Compensation must run even if the client has gone away.
	cleanupCtx := context.WithoutCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.put(gctx, saga, thumbKey, cover, imaging.ContentType)
	})
	g.Go(func() error {
		return c.put(gctx, saga, fileKey, file.Data, contentType)
	})

	if err := g.Wait(); err != nil {
		uploadErr := fmt.Errorf("%w: %v", ErrUploadFailed, err)
		if rbErr := saga.Rollback(cleanupCtx, err); rbErr != nil {
			return nil, errors.Join(uploadErr, rbErr)
		}
		return nil, uploadErr
	}

	if err := saga.Finalize(cleanupCtx, thumbKey, fileKey); err != nil {
		if rbErr := saga.Rollback(cleanupCtx, err); rbErr != nil {
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}

	p := saga.Placeholder()
	book := Book{
		ID:          p.BookID,
		Slug:        p.Slug,
		Title:       p.Title,
		Category:    p.Category,
		Description: p.Description,
		Thumbnail:   thumbKey,
		Author:      Author{ID: p.AuthorID, Name: p.AuthorName, Country: p.AuthorCountry},
		CreatedAt:   p.CreatedAt,
	}
	c.signCover(ctx, &book)

	version := Version{
		ID:          p.VersionID,
		BookID:      p.BookID,
		UserID:      userID,
		File:        fileKey,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		PageCount:   p.PageCount,
		CreatedAt:   p.CreatedAt,
	}

	c.logger.Info("book created", "book_id", book.ID, "slug", book.Slug)
	return &Entry{Book: book, Versions: []Version{version}}, nil
}

func (c *catalog) addVersion(ctx context.Context, bookID, userID int64, file *Upload) (*Entry, error) {
	exists, err := c.store.BookExists(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	contentType := DetectContentType(file.ContentType, file.Data)
	key := storage.NewKey(file.Name, c.now())

	if err := c.blobs.Put(ctx, key, bytes.NewReader(file.Data), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	v, err := c.store.InsertVersion(ctx, NewVersion{
		BookID:      bookID,
		UserID:      userID,
		File:        key,
		ContentType: contentType,
		SizeBytes:   int64(len(file.Data)),
		PageCount:   pageCount(c.logger, file.Data, contentType),
	})
	if err != nil {
		if delErr := c.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			c.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, err
	}

	c.logger.Info("version added", "book_id", bookID, "version_id", v.ID)
	return &Entry{Book: Book{ID: bookID}, Versions: []Version{v}}, nil
}

// resolveAuthor returns an existing author, or a staged one with zero ID
// for the placeholder transaction to create.
func (c *catalog) resolveAuthor(ctx context.Context, in AuthorInput) (Author, error) {
	name := NormalizeText(in.Name)
	country := NormalizeText(in.Country)

	switch {
	case in.ID != nil && (name != "" || country != ""):
		return Author{}, ErrInvalidAuthor
	case in.ID != nil:
		return c.store.FindAuthor(ctx, *in.ID)
	case name == "" || country == "":
		return Author{}, ErrInvalidAuthor
	}

	existing, err := c.store.FindAuthorByName(ctx, name, country)
	if err != nil {
		return Author{}, fmt.Errorf("find author: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}
	return Author{Name: name, Country: country}, nil
}

func (c *catalog) put(ctx context.Context, saga *Saga, key string, data []byte, contentType string) error {
	if err := c.blobs.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	saga.Uploaded(key)
	return nil
}

// objectKeys returns distinct keys for a cover and its content file. The
// cover is re-encoded as .jpg, so a content file with the same stem would
// otherwise land on the cover's key.
func objectKeys(cover, file string, now time.Time) (string, string) {
	thumbKey := storage.NewKey(coverName(cover), now)
	fileKey := storage.NewKey(file, now)
	if fileKey == thumbKey {
		fileKey = storage.NewKey(file, now.Add(time.Millisecond))
	}
	return thumbKey, fileKey
}

func coverName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "cover"
	}
	return base + ".jpg"
}
