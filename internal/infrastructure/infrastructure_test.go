package infrastructure_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/internal/infrastructure"
	"github.com/JaimeStill/libris/pkg/cache"
	"github.com/JaimeStill/libris/pkg/storage"
)

func TestNewWithMemoryBackends(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[database]
user = "libris"

[storage]
driver = "memory"

[cache]
driver = "memory"
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Finalize())

	infra, err := infrastructure.NewWithLogger(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	assert.NotNil(t, infra.Lifecycle)
	assert.NotNil(t, infra.Database)
	assert.IsType(t, &storage.Memory{}, infra.Storage)
	assert.IsType(t, &cache.Memory{}, infra.Cache)
	assert.False(t, infra.Database.Ready())
}
