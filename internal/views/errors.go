package views

import (
	"errors"
	"net/http"
)

var (
	ErrMissingViewer   = errors.New("viewer identity required")
	ErrInvalidRequest  = errors.New("book_id and user_id are required")
	ErrInvalidID       = errors.New("invalid id")
	ErrVersionNotFound = errors.New("version not found")
	ErrVersionMismatch = errors.New("version does not belong to book or user")
)

// MapHTTPStatus maps view accounting errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMissingViewer),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrVersionMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
