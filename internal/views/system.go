// Package views counts version views, absorbing repeats from the same viewer
// within a dedup window.
//
// Deduplication is approximate: the marker is written before the counters
// are incremented, so two concurrent first views from one viewer can both
// count. Counters are analytics, not a ledger.
package views

import (
	"context"
	"log/slog"
	"time"

	"github.com/JaimeStill/libris/pkg/cache"
)

// System defines the view accounting contract.
type System interface {
	Handler() *Handler
	// Record counts v unless the same viewer already counted a view of the
	// version within the dedup window.
	Record(ctx context.Context, v View) (Result, error)
}

type accounting struct {
	store  Store
	kv     cache.System
	window time.Duration
	logger *slog.Logger
}

// New creates the view accounting system. window is the dedup marker TTL.
func New(store Store, kv cache.System, window time.Duration, logger *slog.Logger) System {
	return &accounting{
		store:  store,
		kv:     kv,
		window: window,
		logger: logger.With("system", "views"),
	}
}

func (a *accounting) Handler() *Handler {
	return NewHandler(a, a.logger)
}

func (a *accounting) Record(ctx context.Context, v View) (Result, error) {
	res := Result{VersionID: v.VersionID}

	if v.Viewer.Kind == "" || v.Viewer.Value == "" {
		return res, ErrMissingViewer
	}
	if v.VersionID <= 0 || v.BookID <= 0 || v.UserID <= 0 {
		return res, ErrInvalidRequest
	}

	key := Key(v.VersionID, v.Viewer)

	_, seen, err := a.kv.Get(ctx, key)
	if err != nil {
		a.logger.Warn("dedup cache read failed, counting view", "key", key, "error", err)
	}
	if seen {
		a.logger.Debug("view deduplicated", "version_id", v.VersionID, "viewer_kind", v.Viewer.Kind)
		return res, nil
	}

	marked := true
	if err := a.kv.Set(ctx, key, "1", a.window); err != nil {
		marked = false
		a.logger.Warn("dedup cache write failed, counting view", "key", key, "error", err)
	}

	if err := a.store.Increment(ctx, v.VersionID, v.BookID, v.UserID); err != nil {
		// Release the marker so the viewer's next attempt can count.
		if marked {
			if delErr := a.kv.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				a.logger.Warn("dedup marker release failed", "key", key, "error", delErr)
			}
		}
		return res, err
	}

	res.Counted = true
	a.logger.Info(
		"view counted",
		"version_id", v.VersionID,
		"book_id", v.BookID,
		"viewer_kind", v.Viewer.Kind,
	)
	return res, nil
}
