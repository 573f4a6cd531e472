// Package books implements the catalog entry domain: ingestion of new books
// and versions across the relational and blob stores, slug resolution,
// version trash and recovery, and signed access to covers and files.
package books

import "time"

// Pending marks a thumbnail or file reference whose blob upload has not
// completed. Rows carrying it are never exposed to readers.
const Pending = "pending"

// Author is a book's contributor.
type Author struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Book is a catalog entry. Thumbnail holds the cover's blob key.
type Book struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"-"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Views       int64     `json:"views"`
	Author      Author    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
}

// Version is one uploaded file of a book. File holds the blob key.
type Version struct {
	ID          int64      `json:"id"`
	BookID      int64      `json:"book_id"`
	UserID      int64      `json:"user_id"`
	File        string     `json:"-"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	PageCount   *int       `json:"page_count"`
	Views       int64      `json:"views"`
	IsTrashed   bool       `json:"is_trashed"`
	TrashedAt   *time.Time `json:"trashed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Available reports whether the version's blob is uploaded and it is not trashed.
func (v Version) Available() bool {
	return v.File != Pending && !v.IsTrashed
}

// Entry is a book with its versions.
type Entry struct {
	Book
	Versions []Version `json:"versions"`
}

// Upload is a file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// AuthorInput names the author of a new book, either by existing id or by
// name and country. Exactly one form must be given.
type AuthorInput struct {
	ID      *int64
	Name    string
	Country string
}

// NewBook describes a catalog entry to create alongside its first version.
type NewBook struct {
	Title       string
	Category    string
	Description string
	Author      AuthorInput
	Thumbnail   *Upload
}

// Request is an ingestion request. Exactly one of BookID (add a version to
// an existing book) or Book (create a book with its first version) is set.
type Request struct {
	BookID *int64
	Book   *NewBook
	UserID int64
	File   *Upload
}

// Placeholder is the relational state written before blob uploads begin.
// AuthorID is zero when a new author is staged; CreatePlaceholder fills it
// and sets AuthorCreated.
type Placeholder struct {
	Slug          string
	Title         string
	Category      string
	Description   string
	AuthorID      int64
	AuthorName    string
	AuthorCountry string
	UserID        int64
	ContentType   string
	SizeBytes     int64
	PageCount     *int

	BookID        int64
	VersionID     int64
	AuthorCreated bool
	CreatedAt     time.Time
}

// NewVersion is the row written for a version added to an existing book.
type NewVersion struct {
	BookID      int64
	UserID      int64
	File        string
	ContentType string
	SizeBytes   int64
	PageCount   *int
}
