package api

import (
	"net/http"

	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(mux, domain.Books.Handler(cfg.API.MaxUploadSizeBytes()).Routes()...)
	routes.Register(
		mux,
		domain.Views.Handler().Routes(),
		domain.Trash.Handler().Routes(),
	)
}
