package books_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/books"
	"github.com/JaimeStill/libris/internal/links"
	"github.com/JaimeStill/libris/pkg/imaging"
	"github.com/JaimeStill/libris/pkg/storage"
)

type memStore struct {
	mu       sync.Mutex
	nextID   int64
	authors  map[int64]books.Author
	books    map[int64]books.Book
	versions map[int64]books.Version
	users    map[int64]bool

	writes         int
	failFinalize   error
	failInsert     error
	failDelete     error
	slugRace       bool
	deletedAuthors []int64
}

func newMemStore() *memStore {
	return &memStore{
		authors:  make(map[int64]books.Author),
		books:    make(map[int64]books.Book),
		versions: make(map[int64]books.Version),
		users:    map[int64]bool{1: true, 2: true},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addAuthor(name, country string) books.Author {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := books.Author{ID: s.id(), Name: name, Country: country}
	s.authors[a.ID] = a
	return a
}

func (s *memStore) addBook(slug string, author books.Author, thumbnail string) books.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := books.Book{ID: s.id(), Slug: slug, Title: slug, Thumbnail: thumbnail, Author: author}
	s.books[b.ID] = b
	return b
}

func (s *memStore) addVersion(v books.Version) books.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.id()
	s.versions[v.ID] = v
	return v
}

func (s *memStore) FindAuthor(_ context.Context, id int64) (books.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authors[id]
	if !ok {
		return books.Author{}, books.ErrAuthorNotFound
	}
	return a, nil
}

func (s *memStore) FindAuthorByName(_ context.Context, name, country string) (*books.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.authors {
		if strings.EqualFold(a.Name, name) && strings.EqualFold(a.Country, country) {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *memStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugRace {
		return false, nil
	}
	for _, b := range s.books {
		if b.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) BookExists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	return ok && b.Thumbnail != books.Pending, nil
}

func (s *memStore) CreatePlaceholder(_ context.Context, p books.Placeholder) (books.Placeholder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.Slug == p.Slug {
			return books.Placeholder{}, books.ErrSlugTaken
		}
	}
	if !s.users[p.UserID] {
		return books.Placeholder{}, books.ErrUserNotFound
	}

	s.writes++
	if p.AuthorID == 0 {
		a := books.Author{ID: s.id(), Name: p.AuthorName, Country: p.AuthorCountry}
		s.authors[a.ID] = a
		p.AuthorID = a.ID
		p.AuthorCreated = true
	}

	p.BookID = s.id()
	p.CreatedAt = time.Now()
	s.books[p.BookID] = books.Book{
		ID:        p.BookID,
		Slug:      p.Slug,
		Title:     p.Title,
		Thumbnail: books.Pending,
		Author:    s.authors[p.AuthorID],
		CreatedAt: p.CreatedAt,
	}

	p.VersionID = s.id()
	s.versions[p.VersionID] = books.Version{
		ID:          p.VersionID,
		BookID:      p.BookID,
		UserID:      p.UserID,
		File:        books.Pending,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		PageCount:   p.PageCount,
	}
	return p, nil
}

func (s *memStore) FinalizePlaceholder(_ context.Context, p books.Placeholder, thumbnail, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFinalize != nil {
		return s.failFinalize
	}
	s.writes++
	b := s.books[p.BookID]
	b.Thumbnail = thumbnail
	s.books[p.BookID] = b
	v := s.versions[p.VersionID]
	v.File = file
	s.versions[p.VersionID] = v
	return nil
}

func (s *memStore) DeletePlaceholder(_ context.Context, p books.Placeholder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	s.writes++
	delete(s.books, p.BookID)
	for id, v := range s.versions {
		if v.BookID == p.BookID {
			delete(s.versions, id)
		}
	}
	if p.AuthorCreated {
		delete(s.authors, p.AuthorID)
		s.deletedAuthors = append(s.deletedAuthors, p.AuthorID)
	}
	return nil
}

func (s *memStore) InsertVersion(_ context.Context, nv books.NewVersion) (books.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return books.Version{}, s.failInsert
	}
	s.writes++
	v := books.Version{
		ID:          s.id(),
		BookID:      nv.BookID,
		UserID:      nv.UserID,
		File:        nv.File,
		ContentType: nv.ContentType,
		SizeBytes:   nv.SizeBytes,
		PageCount:   nv.PageCount,
	}
	s.versions[v.ID] = v
	return v, nil
}

func (s *memStore) FindBySlug(_ context.Context, slug string) (books.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.Slug == slug && b.Thumbnail != books.Pending {
			return b, nil
		}
	}
	return books.Book{}, books.ErrNotFound
}

func (s *memStore) ListVersions(_ context.Context, bookID int64) ([]books.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []books.Version{}
	for _, v := range s.versions {
		if v.BookID == bookID && v.Available() {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, func(a, b books.Version) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *memStore) FindVersion(_ context.Context, id int64) (books.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok {
		return books.Version{}, books.ErrVersionNotFound
	}
	return v, nil
}

func (s *memStore) SetTrashed(_ context.Context, id int64, trashed bool, at time.Time) (books.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[id]
	if !ok || (!trashed && !v.IsTrashed) {
		return books.Version{}, books.ErrVersionNotFound
	}
	s.writes++
	v.IsTrashed = trashed
	if trashed {
		v.TrashedAt = &at
	} else {
		v.TrashedAt = nil
	}
	s.versions[id] = v
	return v, nil
}

func (s *memStore) counts() (nBooks, nVersions, nAuthors int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books), len(s.versions), len(s.authors)
}

// blobs wraps the memory backend with per-key failure injection.
type blobs struct {
	*storage.Memory
	mu         sync.Mutex
	puts       []string
	deletes    []string
	failSuffix string
}

func newBlobs() *blobs {
	return &blobs{Memory: storage.NewMemory("libris")}
}

func (b *blobs) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	b.mu.Lock()
	b.puts = append(b.puts, key)
	fail := b.failSuffix != "" && strings.HasSuffix(key, b.failSuffix)
	b.mu.Unlock()
	if fail {
		return errors.New("blob store unavailable")
	}
	return b.Memory.Put(ctx, key, r, contentType)
}

func (b *blobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	b.deletes = append(b.deletes, key)
	b.mu.Unlock()
	return b.Memory.Delete(ctx, key)
}

func (b *blobs) putCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.puts)
}

type fixture struct {
	store *memStore
	blobs *blobs
	sys   books.System
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: newMemStore(),
		blobs: newBlobs(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	signer := links.New(f.blobs, nil, links.Options{TTL: time.Hour, CacheTTL: 55 * time.Minute}, discard())
	f.sys = books.New(f.store, f.blobs, signer, books.Options{
		Covers: imaging.Options{Width: 60, Height: 90, Quality: 80},
		Now:    func() time.Time { return f.now },
	}, discard())
	return f
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newBookRequest(t *testing.T, title string, author books.AuthorInput) books.Request {
	return books.Request{
		UserID: 1,
		Book: &books.NewBook{
			Title:       title,
			Category:    "Science Fiction",
			Description: "Desert planet.",
			Author:      author,
			Thumbnail:   &books.Upload{Name: "cover.png", ContentType: "image/png", Data: pngBytes(t, 120, 120)},
		},
		File: &books.Upload{Name: "dune.txt", ContentType: "text/plain", Data: []byte("the spice must flow")},
	}
}

func ptr(v int64) *int64 { return &v }
