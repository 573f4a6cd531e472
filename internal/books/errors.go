package books

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/libris/pkg/imaging"
)

// Domain errors for catalog operations.
var (
	ErrInvalidRequest   = errors.New("request must set exactly one of book_id or book details")
	ErrInvalidAuthor    = errors.New("author requires either an id or a name and country")
	ErrMissingFile      = errors.New("file is required")
	ErrMissingThumbnail = errors.New("thumbnail is required")
	ErrMissingTitle     = errors.New("title is required")
	ErrIdentityRequired = errors.New("authenticated user required")
	ErrSlugTaken        = errors.New("a book with this title and author already exists")
	ErrNotFound         = errors.New("book not found")
	ErrAuthorNotFound   = errors.New("author not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrNotOwner         = errors.New("version belongs to another user")
	ErrUploadFailed     = errors.New("blob upload failed")
	ErrInvalidID        = errors.New("invalid id")
	ErrFileTooLarge     = errors.New("upload exceeds maximum size")
)

// MapHTTPStatus maps catalog domain errors to HTTP status codes.
// Unrecognized errors are store failures and map to 500.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidAuthor),
		errors.Is(err, ErrMissingFile),
		errors.Is(err, ErrMissingThumbnail),
		errors.Is(err, ErrMissingTitle),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, imaging.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrIdentityRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAuthorNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
