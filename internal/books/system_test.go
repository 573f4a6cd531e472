package books_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/books"
)

func seedVersion(t *testing.T, f *fixture, owner int64) (books.Book, books.Version) {
	t.Helper()
	ctx := context.Background()
	author := f.store.addAuthor("Frank Herbert", "USA")
	book := f.store.addBook("dune-frank-herbert", author, "1_cover.jpg")
	require.NoError(t, f.blobs.Put(ctx, "1_cover.jpg", strings.NewReader("jpg"), "image/jpeg"))
	require.NoError(t, f.blobs.Put(ctx, "1_dune.txt", strings.NewReader("text"), "text/plain"))
	v := f.store.addVersion(books.Version{BookID: book.ID, UserID: owner, File: "1_dune.txt"})
	return book, v
}

func TestFind(t *testing.T) {
	f := newFixture(t)
	_, v := seedVersion(t, f, 1)
	trashed := f.store.addVersion(books.Version{BookID: v.BookID, UserID: 1, File: "2_old.txt", IsTrashed: true})

	entry, err := f.sys.Find(context.Background(), "dune-frank-herbert")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(entry.CoverURL, "memory://libris/1_cover.jpg?expires="))
	require.Len(t, entry.Versions, 1)
	assert.Equal(t, v.ID, entry.Versions[0].ID)
	assert.NotEqual(t, trashed.ID, entry.Versions[0].ID)
}

func TestFindMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.sys.Find(context.Background(), "nope")
	assert.ErrorIs(t, err, books.ErrNotFound)
}

func TestFindSkipsPlaceholder(t *testing.T) {
	f := newFixture(t)
	author := f.store.addAuthor("Frank Herbert", "USA")
	f.store.addBook("dune-frank-herbert", author, books.Pending)

	_, err := f.sys.Find(context.Background(), "dune-frank-herbert")
	assert.ErrorIs(t, err, books.ErrNotFound)
}

func TestDownloadURL(t *testing.T) {
	f := newFixture(t)
	_, v := seedVersion(t, f, 1)

	url, err := f.sys.DownloadURL(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Contains(t, url, "1_dune.txt")
}

func TestDownloadURLUnavailable(t *testing.T) {
	f := newFixture(t)
	book, _ := seedVersion(t, f, 1)
	pending := f.store.addVersion(books.Version{BookID: book.ID, UserID: 1, File: books.Pending})
	trashed := f.store.addVersion(books.Version{BookID: book.ID, UserID: 1, File: "3_x.txt", IsTrashed: true})

	for _, id := range []int64{pending.ID, trashed.ID, 999} {
		_, err := f.sys.DownloadURL(context.Background(), id)
		assert.ErrorIs(t, err, books.ErrVersionNotFound)
	}
}

func TestTrashAndRecover(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, v := seedVersion(t, f, 1)

	trashed, err := f.sys.Trash(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.True(t, trashed.IsTrashed)
	require.NotNil(t, trashed.TrashedAt)
	assert.Equal(t, f.now, *trashed.TrashedAt)

	f.now = f.now.Add(time.Hour)
	again, err := f.sys.Trash(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, *trashed.TrashedAt, *again.TrashedAt, "trash is idempotent")

	recovered, err := f.sys.Recover(ctx, v.ID, 1)
	require.NoError(t, err)
	assert.False(t, recovered.IsTrashed)
	assert.Nil(t, recovered.TrashedAt)

	_, err = f.sys.Recover(ctx, v.ID, 1)
	assert.NoError(t, err, "recover is idempotent")
}

func TestTrashOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book, v := seedVersion(t, f, 1)
	pending := f.store.addVersion(books.Version{BookID: book.ID, UserID: 1, File: books.Pending})

	tests := []struct {
		name    string
		version int64
		user    int64
		want    error
	}{
		{"anonymous", v.ID, 0, books.ErrIdentityRequired},
		{"other user", v.ID, 2, books.ErrNotOwner},
		{"missing", 999, 1, books.ErrVersionNotFound},
		{"pending", pending.ID, 1, books.ErrVersionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sys.Trash(ctx, tt.version, tt.user)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.sys.Recover(ctx, v.ID, 2)
	assert.ErrorIs(t, err, books.ErrNotOwner)
	assert.False(t, f.store.versions[v.ID].IsTrashed)
}
