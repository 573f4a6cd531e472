package module_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/libris/pkg/module"
)

func TestNewInvalidPrefixPanics(t *testing.T) {
	for _, prefix := range []string{"", "api", "/api/v1"} {
		t.Run(prefix, func(t *testing.T) {
			assert.Panics(t, func() { module.New(prefix, http.NewServeMux()) })
		})
	}
}

func TestServePrefixStripping(t *testing.T) {
	mux := http.NewServeMux()
	var receivedPath string
	mux.HandleFunc("GET /books/{slug}", func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
	})

	m := module.New("/api", mux)
	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/books/dune", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/books/dune", receivedPath)
}

func TestRouterDispatch(t *testing.T) {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("api"))
	})

	router := module.NewRouter()
	router.Mount(module.New("/api", apiMux))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		path     string
		wantBody string
	}{
		{"/api/ping", "api"},
		{"/api/ping/", "api"},
		{"/healthz", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}

	assert.Equal(t, []string{"/api"}, router.Prefixes())
}

func TestRouterMiddlewareWrapsNativeAndModules(t *testing.T) {
	calls := 0
	router := module.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	})
	router.Mount(module.New("/api", http.NewServeMux()))
	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/none", nil))

	assert.Equal(t, 2, calls)
}
