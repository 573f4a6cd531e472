package views

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/libris/pkg/handlers"
	"github.com/JaimeStill/libris/pkg/middleware"
	"github.com/JaimeStill/libris/pkg/routes"
)

// maxBody caps the JSON view request.
const maxBody = 4 << 10

// Handler provides the view recording endpoint.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "views"),
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/versions/{id}",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/views", Handler: h.Record, MaxBytes: maxBody},
		},
	}
}

type recordBody struct {
	BookID int64 `json:"book_id"`
	UserID int64 `json:"user_id"`
}

// Record counts a view of the version for the requesting viewer.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	versionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || versionID <= 0 {
		handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	var body recordBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	mv, _ := middleware.ViewerFrom(r.Context())
	viewer, err := ViewerOf(mv)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	res, err := h.sys.Record(r.Context(), View{
		VersionID: versionID,
		BookID:    body.BookID,
		UserID:    body.UserID,
		Viewer:    viewer,
	})
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, res)
}
