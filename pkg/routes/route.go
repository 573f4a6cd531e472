package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
// A positive MaxBytes caps the request body with http.MaxBytesReader.
type Route struct {
	Method   string
	Pattern  string
	Handler  http.HandlerFunc
	MaxBytes int64
}

func (r Route) handler() http.HandlerFunc {
	if r.MaxBytes <= 0 {
		return r.Handler
	}
	limit := r.MaxBytes
	next := r.Handler
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, limit)
		next(w, req)
	}
}
