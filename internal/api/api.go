// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/pkg/middleware"
	"github.com/JaimeStill/libris/pkg/module"
)

// NewModule creates the API module serving domain's handlers under the
// configured base path. Callers resolve through the identity header.
func NewModule(cfg *config.Config, domain *Domain) *module.Module {
	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Identity(cfg.API.IdentityHeader))

	return m
}
