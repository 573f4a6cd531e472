package books

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/JaimeStill/libris/pkg/handlers"
	"github.com/JaimeStill/libris/pkg/middleware"
	"github.com/JaimeStill/libris/pkg/routes"
)

// bookFields are the form fields that select the new-book request shape.
var bookFields = []string{"title", "category", "description", "author_id", "author_name", "author_country"}

// Handler provides HTTP endpoints for catalog operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "books"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route groups for book and version endpoints.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/books",
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: h.Create, MaxBytes: h.maxUploadSize},
				{Method: "GET", Pattern: "/{slug}", Handler: h.Find},
			},
		},
		{
			Prefix: "/versions/{id}",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/download", Handler: h.Download},
				{Method: "POST", Pattern: "/trash", Handler: h.Trash},
				{Method: "POST", Pattern: "/recover", Handler: h.Recover},
			},
		},
	}
}

// Create ingests a multipart upload. With book_id it adds a version to that
// book; with title, author and thumbnail fields it creates a new book.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handlers.RespondErrorRequest(w, r, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := h.parseRequest(r)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	entry, err := h.sys.Ingest(r.Context(), req)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, entry)
}

// Find returns a book by slug.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sys.Find(r.Context(), r.PathValue("slug"))
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Download redirects to a signed URL for the version's file.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, err)
		return
	}

	url, err := h.sys.DownloadURL(r.Context(), id)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// Trash moves the caller's version to the trash.
func (h *Handler) Trash(w http.ResponseWriter, r *http.Request) {
	h.setTrashed(w, r, h.sys.Trash)
}

// Recover restores the caller's trashed version.
func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	h.setTrashed(w, r, h.sys.Recover)
}

func (h *Handler) setTrashed(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, versionID, userID int64) (*Version, error),
) {
	id, err := pathID(r)
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, http.StatusBadRequest, err)
		return
	}

	v, err := op(r.Context(), id, callerID(r))
	if err != nil {
		handlers.RespondErrorRequest(w, r, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

func (h *Handler) parseRequest(r *http.Request) (Request, error) {
	req := Request{UserID: callerID(r)}

	if raw := strings.TrimSpace(r.FormValue("book_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return req, err
		}
		req.BookID = &id
	}

	thumbnail, err := formUpload(r, "thumbnail")
	if err != nil {
		return req, err
	}
	if thumbnail != nil || anyField(r, bookFields) {
		nb := &NewBook{
			Title:       r.FormValue("title"),
			Category:    r.FormValue("category"),
			Description: r.FormValue("description"),
			Author: AuthorInput{
				Name:    r.FormValue("author_name"),
				Country: r.FormValue("author_country"),
			},
			Thumbnail: thumbnail,
		}
		if raw := strings.TrimSpace(r.FormValue("author_id")); raw != "" {
			id, err := parseID(raw)
			if err != nil {
				return req, ErrInvalidAuthor
			}
			nb.Author.ID = &id
		}
		req.Book = nb
	}

	file, err := formUpload(r, "file")
	if err != nil {
		return req, err
	}
	req.File = file

	return req, nil
}

func formUpload(r *http.Request, field string) (*Upload, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrInvalidRequest
	}
	defer f.Close()
	return readUpload(f, header)
}

func readUpload(f multipart.File, header *multipart.FileHeader) (*Upload, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, ErrInvalidRequest
	}
	return &Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func anyField(r *http.Request, names []string) bool {
	for _, name := range names {
		if strings.TrimSpace(r.FormValue(name)) != "" {
			return true
		}
	}
	return false
}

func callerID(r *http.Request) int64 {
	v, ok := middleware.ViewerFrom(r.Context())
	if !ok || v.UserID == nil {
		return 0
	}
	return *v.UserID
}

func pathID(r *http.Request) (int64, error) {
	return parseID(r.PathValue("id"))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
