package api

import (
	"github.com/JaimeStill/libris/internal/books"
	"github.com/JaimeStill/libris/internal/links"
	"github.com/JaimeStill/libris/internal/trash"
	"github.com/JaimeStill/libris/internal/views"
	"github.com/JaimeStill/libris/pkg/imaging"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Books books.System
	Views views.System
	Trash trash.System
	Links links.Signer
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()
	cat := runtime.Catalog

	signer := links.New(
		runtime.Storage,
		runtime.Cache,
		links.Options{
			TTL:      cat.Links.TTLDuration(),
			CacheTTL: cat.Links.CacheTTLDuration(),
		},
		runtime.Logger,
	)

	booksSystem := books.New(
		books.NewRepository(db),
		runtime.Storage,
		signer,
		books.Options{
			Covers: imaging.Options{
				Width:   cat.Covers.Width,
				Height:  cat.Covers.Height,
				Quality: cat.Covers.Quality,
			},
		},
		runtime.Logger,
	)

	viewsSystem := views.New(
		views.NewRepository(db),
		runtime.Cache,
		cat.Views.DedupWindowDuration(),
		runtime.Logger,
	)

	trashSystem := trash.New(
		trash.NewRepository(db),
		runtime.Storage,
		trash.Options{
			Retention:   cat.Trash.RetentionDuration(),
			Concurrency: cat.Trash.Concurrency,
			BatchSize:   cat.Trash.BatchSize,
		},
		runtime.Logger,
	)

	return &Domain{
		Books: booksSystem,
		Views: viewsSystem,
		Trash: trashSystem,
		Links: signer,
	}
}
