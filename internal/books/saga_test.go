package books_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/books"
)

func placeholder() books.Placeholder {
	return books.Placeholder{
		Slug:          "dune-frank-herbert",
		Title:         "Dune",
		AuthorName:    "Frank Herbert",
		AuthorCountry: "USA",
		UserID:        1,
		ContentType:   "text/plain",
		SizeBytes:     4,
	}
}

func TestSagaFinalize(t *testing.T) {
	ctx := context.Background()
	store, bl := newMemStore(), newBlobs()
	saga := books.NewSaga(store, bl, discard())
	assert.Equal(t, books.SagaNew, saga.State())

	require.NoError(t, saga.Begin(ctx, placeholder()))
	assert.Equal(t, books.SagaPending, saga.State())

	p := saga.Placeholder()
	assert.NotZero(t, p.BookID)
	assert.NotZero(t, p.VersionID)
	assert.True(t, p.AuthorCreated)
	assert.Equal(t, books.Pending, store.books[p.BookID].Thumbnail)

	require.NoError(t, saga.Finalize(ctx, "1_cover.jpg", "1_dune.txt"))
	assert.Equal(t, books.SagaFinalized, saga.State())
	assert.Equal(t, "1_cover.jpg", store.books[p.BookID].Thumbnail)
	assert.Equal(t, "1_dune.txt", store.versions[p.VersionID].File)

	err := saga.Rollback(ctx, errors.New("late"))
	assert.ErrorIs(t, err, books.ErrSagaTransition)
}

func TestSagaRollbackRemovesBlobsAndRows(t *testing.T) {
	ctx := context.Background()
	store, bl := newMemStore(), newBlobs()
	saga := books.NewSaga(store, bl, discard())

	require.NoError(t, saga.Begin(ctx, placeholder()))
	require.NoError(t, bl.Put(ctx, "1_cover.jpg", strings.NewReader("jpg"), "image/jpeg"))
	saga.Uploaded("1_cover.jpg")

	require.NoError(t, saga.Rollback(ctx, errors.New("upload failed")))
	assert.Equal(t, books.SagaRolledBack, saga.State())
	assert.Zero(t, bl.Len())

	nBooks, nVersions, nAuthors := store.counts()
	assert.Zero(t, nBooks)
	assert.Zero(t, nVersions)
	assert.Zero(t, nAuthors)
}

func TestSagaRollbackFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	store, bl := newMemStore(), newBlobs()
	saga := books.NewSaga(store, bl, discard())

	require.NoError(t, saga.Begin(ctx, placeholder()))
	store.failDelete = errors.New("connection refused")

	err := saga.Rollback(ctx, errors.New("upload failed"))
	require.Error(t, err)
	assert.Equal(t, books.SagaPending, saga.State())

	store.failDelete = nil
	require.NoError(t, saga.Rollback(ctx, errors.New("upload failed")))
	assert.Equal(t, books.SagaRolledBack, saga.State())
}

func TestSagaFinalizeFailureStaysPending(t *testing.T) {
	ctx := context.Background()
	store, bl := newMemStore(), newBlobs()
	saga := books.NewSaga(store, bl, discard())

	require.NoError(t, saga.Begin(ctx, placeholder()))
	store.failFinalize = errors.New("deadlock detected")

	require.Error(t, saga.Finalize(ctx, "a", "b"))
	assert.Equal(t, books.SagaPending, saga.State())
}

func TestSagaTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("finalize before begin", func(t *testing.T) {
		saga := books.NewSaga(newMemStore(), newBlobs(), discard())
		assert.ErrorIs(t, saga.Finalize(ctx, "a", "b"), books.ErrSagaTransition)
	})

	t.Run("rollback before begin", func(t *testing.T) {
		saga := books.NewSaga(newMemStore(), newBlobs(), discard())
		assert.ErrorIs(t, saga.Rollback(ctx, nil), books.ErrSagaTransition)
	})

	t.Run("begin twice", func(t *testing.T) {
		saga := books.NewSaga(newMemStore(), newBlobs(), discard())
		require.NoError(t, saga.Begin(ctx, placeholder()))
		assert.ErrorIs(t, saga.Begin(ctx, placeholder()), books.ErrSagaTransition)
	})

	t.Run("failed begin stays new", func(t *testing.T) {
		store := newMemStore()
		saga := books.NewSaga(store, newBlobs(), discard())
		p := placeholder()
		p.UserID = 99
		assert.ErrorIs(t, saga.Begin(ctx, p), books.ErrUserNotFound)
		assert.Equal(t, books.SagaNew, saga.State())
	})
}
