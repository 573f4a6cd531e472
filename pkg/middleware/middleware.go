// Package middleware holds the HTTP middleware shared by the router and its
// modules: request ids, access logging, CORS and caller identity.
package middleware

import (
	"net/http"
	"slices"
)

// Func wraps a handler.
type Func func(http.Handler) http.Handler

// System is an ordered middleware stack. The first Use runs outermost.
type System interface {
	Use(mw func(http.Handler) http.Handler)
	Apply(handler http.Handler) http.Handler
}

type stack []Func

// New creates a stack seeded with mws in order.
func New(mws ...Func) System {
	s := make(stack, 0, len(mws))
	s = append(s, mws...)
	return &s
}

func (s *stack) Use(mw func(http.Handler) http.Handler) {
	*s = append(*s, mw)
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(*s) {
		handler = mw(handler)
	}
	return handler
}
