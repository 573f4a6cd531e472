package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/libris/internal/api"
	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/internal/infrastructure"
	"github.com/JaimeStill/libris/internal/trash"
	"github.com/JaimeStill/libris/pkg/middleware"
	"github.com/JaimeStill/libris/pkg/module"
)

// Modules holds the mounted HTTP modules and the background jobs that share
// their domain systems.
type Modules struct {
	API       *module.Module
	Domain    *api.Domain
	Scheduler *trash.Scheduler
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	runtime := api.NewRuntime(cfg, infra)
	domain := api.NewDomain(runtime)

	m := &Modules{
		API:    api.NewModule(cfg, domain),
		Domain: domain,
	}

	if !cfg.Catalog.Trash.Disabled {
		scheduler, err := trash.NewScheduler(
			domain.Trash,
			cfg.Catalog.Trash.Schedule,
			cfg.Catalog.Trash.RunTimeoutDuration(),
			runtime.Logger,
		)
		if err != nil {
			return nil, err
		}
		m.Scheduler = scheduler
	}

	return m, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(infra.Logger))

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"status":  "not ready",
				"pending": infra.Lifecycle.Pending(),
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
