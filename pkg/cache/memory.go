package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/JaimeStill/libris/pkg/lifecycle"
)

// Memory is a process-local cache. Entries are not shared across replicas.
type Memory struct {
	store  *ttlcache.Cache[string, string]
	logger *slog.Logger
}

// NewMemory creates a memory cache holding at most maxEntries items
// (zero for no bound). Expired entries are purged once Start runs.
func NewMemory(maxEntries uint64, logger *slog.Logger) *Memory {
	opts := []ttlcache.Option[string, string]{
		ttlcache.WithDisableTouchOnHit[string, string](),
	}
	if maxEntries > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, string](maxEntries))
	}

	return &Memory{
		store:  ttlcache.New(opts...),
		logger: logger,
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Info("starting cache system")

	go m.store.Start()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		m.store.Stop()
		m.logger.Info("cache stopped")
	})

	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	item := m.store.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.store.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.store.Delete(key)
	return nil
}
