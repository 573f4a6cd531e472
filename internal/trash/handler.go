package trash

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/libris/pkg/handlers"
	"github.com/JaimeStill/libris/pkg/routes"
)

const defaultListLimit = 100

// Handler exposes on-demand reclamation.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "trash"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/trash",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/candidates", Handler: h.Candidates},
			{Method: "POST", Pattern: "/reclaim", Handler: h.Reclaim},
		},
	}
}

// Reclaim runs the worker and returns its report.
func (h *Handler) Reclaim(w http.ResponseWriter, r *http.Request) {
	report, err := h.sys.Run(r.Context())
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, report)
}

// Candidates lists versions eligible for the next run. ?limit= caps the list.
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, ErrInvalidLimit)
			return
		}
		limit = n
	}

	cs, err := h.sys.Candidates(r.Context(), limit)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cs)
}
