package books

import (
	"strings"

	"github.com/gosimple/slug"
)

// NormalizeText trims s and collapses internal whitespace runs to one space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Slug derives the canonical, URL-safe identifier for a book from its title
// and author name. It is deterministic and does not check uniqueness.
func Slug(title, authorName string) string {
	return slug.Make(NormalizeText(title) + " " + NormalizeText(authorName))
}
