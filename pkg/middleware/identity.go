package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Viewer identifies who is making a request: an authenticated user id when the
// identity header is present and valid, otherwise the client network address.
type Viewer struct {
	UserID *int64
	Addr   string
}

// Authenticated reports whether the viewer carries a user id.
func (v Viewer) Authenticated() bool {
	return v.UserID != nil
}

type viewerKey struct{}

// Identity returns middleware that resolves the Viewer for each request.
// The user id is read from header; the address comes from the first
// X-Forwarded-For hop, falling back to RemoteAddr.
func Identity(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := Viewer{Addr: clientAddr(r)}
			if raw := strings.TrimSpace(r.Header.Get(header)); raw != "" {
				if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
					v.UserID = &id
				}
			}
			ctx := context.WithValue(r.Context(), viewerKey{}, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewerFrom returns the Viewer stored by Identity.
func ViewerFrom(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(Viewer)
	return v, ok
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
