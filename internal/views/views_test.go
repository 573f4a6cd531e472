package views_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/views"
	"github.com/JaimeStill/libris/pkg/cache"
	"github.com/JaimeStill/libris/pkg/middleware"
	"github.com/JaimeStill/libris/pkg/routes"
)

type version struct {
	bookID, userID int64
	unavailable    bool
}

type counters struct {
	mu       sync.Mutex
	versions map[int64]version
	book     map[int64]int
	version  map[int64]int
	user     map[int64]int
	fail     error
}

func newCounters() *counters {
	return &counters{
		versions: map[int64]version{
			10: {bookID: 1, userID: 100},
			11: {bookID: 1, userID: 101},
			12: {bookID: 1, userID: 100, unavailable: true},
		},
		book:    make(map[int64]int),
		version: make(map[int64]int),
		user:    make(map[int64]int),
	}
}

func (c *counters) Increment(_ context.Context, versionID, bookID, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	v, ok := c.versions[versionID]
	if !ok || v.unavailable {
		return views.ErrVersionNotFound
	}
	if v.bookID != bookID || v.userID != userID {
		return views.ErrVersionMismatch
	}
	c.book[bookID]++
	c.version[versionID]++
	c.user[userID]++
	return nil
}

func (c *counters) snapshot(versionID, bookID, userID int64) [3]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return [3]int{c.book[bookID], c.version[versionID], c.user[userID]}
}

type brokenCache struct{ cache.System }

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("redis: connection refused")
}

func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("redis: connection refused")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSystem(store views.Store, kv cache.System, window time.Duration) views.System {
	return views.New(store, kv, window, discard())
}

func userViewer(id string) views.Viewer { return views.Viewer{Kind: views.KindUser, Value: id} }

func view(viewer views.Viewer) views.View {
	return views.View{VersionID: 10, BookID: 1, UserID: 100, Viewer: viewer}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "viewed:10:user:7", views.Key(10, userViewer("7")))
	assert.Equal(t, "viewed:10:addr:10.0.0.1", views.Key(10, views.Viewer{Kind: views.KindAddr, Value: "10.0.0.1"}))
}

func TestViewerOf(t *testing.T) {
	id := int64(7)

	tests := []struct {
		name    string
		in      middleware.Viewer
		want    views.Viewer
		wantErr error
	}{
		{"user wins", middleware.Viewer{UserID: &id, Addr: "10.0.0.1"}, userViewer("7"), nil},
		{"address fallback", middleware.Viewer{Addr: "10.0.0.1"}, views.Viewer{Kind: views.KindAddr, Value: "10.0.0.1"}, nil},
		{"nothing", middleware.Viewer{}, views.Viewer{}, views.ErrMissingViewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := views.ViewerOf(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordSameViewerCountsOnce(t *testing.T) {
	ctx := context.Background()
	store := newCounters()
	sys := newSystem(store, cache.NewMemory(0, discard()), 5*time.Hour)

	first, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)
	assert.True(t, first.Counted)

	second, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)
	assert.False(t, second.Counted)

	assert.Equal(t, [3]int{1, 1, 1}, store.snapshot(10, 1, 100))
}

func TestRecordDifferentViewersCountTwice(t *testing.T) {
	ctx := context.Background()
	store := newCounters()
	sys := newSystem(store, cache.NewMemory(0, discard()), 5*time.Hour)

	_, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)
	_, err = sys.Record(ctx, view(views.Viewer{Kind: views.KindAddr, Value: "10.0.0.1"}))
	require.NoError(t, err)

	assert.Equal(t, [3]int{2, 2, 2}, store.snapshot(10, 1, 100))
}

func TestRecordCountsAgainAfterWindow(t *testing.T) {
	ctx := context.Background()
	store := newCounters()
	sys := newSystem(store, cache.NewMemory(0, discard()), 20*time.Millisecond)

	_, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	res, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)

	assert.True(t, res.Counted)
	assert.Equal(t, [3]int{2, 2, 2}, store.snapshot(10, 1, 100))
}

func TestRecordMismatchTouchesNothing(t *testing.T) {
	ctx := context.Background()
	store := newCounters()
	kv := cache.NewMemory(0, discard())
	sys := newSystem(store, kv, 5*time.Hour)

	v := view(userViewer("7"))
	v.UserID = 101
	_, err := sys.Record(ctx, v)

	assert.ErrorIs(t, err, views.ErrVersionMismatch)
	assert.Equal(t, http.StatusUnprocessableEntity, views.MapHTTPStatus(err))
	assert.Equal(t, [3]int{0, 0, 0}, store.snapshot(10, 1, 101))

	_, seen, err := kv.Get(ctx, views.Key(10, userViewer("7")))
	require.NoError(t, err)
	assert.False(t, seen, "failed increments release the marker")
}

func TestRecordStoreFailureReleasesMarker(t *testing.T) {
	ctx := context.Background()
	store := newCounters()
	store.fail = errors.New("deadlock detected")
	sys := newSystem(store, cache.NewMemory(0, discard()), 5*time.Hour)

	_, err := sys.Record(ctx, view(userViewer("7")))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, views.MapHTTPStatus(err))

	store.fail = nil
	res, err := sys.Record(ctx, view(userViewer("7")))
	require.NoError(t, err)
	assert.True(t, res.Counted)
}

func TestRecordValidation(t *testing.T) {
	sys := newSystem(newCounters(), cache.NewMemory(0, discard()), time.Hour)

	_, err := sys.Record(context.Background(), view(views.Viewer{}))
	assert.ErrorIs(t, err, views.ErrMissingViewer)

	v := view(userViewer("7"))
	v.BookID = 0
	_, err = sys.Record(context.Background(), v)
	assert.ErrorIs(t, err, views.ErrInvalidRequest)

	v = view(userViewer("7"))
	v.VersionID = 12
	_, err = sys.Record(context.Background(), v)
	assert.ErrorIs(t, err, views.ErrVersionNotFound)
}

func TestRecordCacheOutageStillCounts(t *testing.T) {
	store := newCounters()
	sys := newSystem(store, brokenCache{}, time.Hour)

	res, err := sys.Record(context.Background(), view(userViewer("7")))
	require.NoError(t, err)
	assert.True(t, res.Counted)
}

func TestHandlerRecord(t *testing.T) {
	store := newCounters()
	sys := newSystem(store, cache.NewMemory(0, discard()), 5*time.Hour)

	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler().Routes())
	h := middleware.Identity("X-User-Id")(mux)

	do := func(path, user, addr, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.RemoteAddr = addr
		if user != "" {
			req.Header.Set("X-User-Id", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	body := `{"book_id": 1, "user_id": 100}`

	rec := do("/versions/10/views", "", "10.0.0.1:5000", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res views.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.True(t, res.Counted)

	rec = do("/versions/10/views", "", "10.0.0.1:6000", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.Counted, "same address deduplicates across ports")

	rec = do("/versions/10/views", "7", "10.0.0.1:6000", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [3]int{2, 2, 2}, store.snapshot(10, 1, 100))

	assert.Equal(t, http.StatusBadRequest, do("/versions/abc/views", "7", "10.0.0.1:1", body).Code)
	assert.Equal(t, http.StatusBadRequest, do("/versions/10/views", "7", "10.0.0.1:1", "not json").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do("/versions/10/views", "8", "10.0.0.1:1", `{"book_id": 2, "user_id": 100}`).Code)
}
