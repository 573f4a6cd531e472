package api_test

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/libris/internal/api"
	"github.com/JaimeStill/libris/internal/config"
	"github.com/JaimeStill/libris/internal/infrastructure"
	"github.com/JaimeStill/libris/pkg/module"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
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

	domain := api.NewDomain(api.NewRuntime(cfg, infra))
	router := module.NewRouter()
	router.Mount(api.NewModule(cfg, domain))
	return router
}

func TestModuleRoutesRejectBeforeStore(t *testing.T) {
	router := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "dune.txt")
	require.NoError(t, err)
	fw.Write([]byte("spice"))
	require.NoError(t, mw.Close())

	tests := []struct {
		name        string
		method      string
		path        string
		user        string
		body        io.Reader
		contentType string
		want        int
	}{
		{"ingest neither shape", "POST", "/api/books", "1", &buf, mw.FormDataContentType(), http.StatusBadRequest},
		{"trash anonymous", "POST", "/api/versions/1/trash", "", nil, "", http.StatusUnauthorized},
		{"trash bad id", "POST", "/api/versions/x/trash", "1", nil, "", http.StatusBadRequest},
		{"view without body", "POST", "/api/versions/1/views", "1", bytes.NewBufferString("{"), "application/json", http.StatusBadRequest},
		{"unknown route", "GET", "/api/nothing", "", nil, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, tt.body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.user != "" {
				req.Header.Set("X-User-ID", tt.user)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
