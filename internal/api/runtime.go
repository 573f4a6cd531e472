package api

import (
	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/internal/infrastructure"
)

// Runtime extends Infrastructure with the configuration the API domain needs.
type Runtime struct {
	*infrastructure.Infrastructure
	Catalog config.CatalogConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Cache:     infra.Cache,
		},
		Catalog: cfg.Catalog,
	}
}
