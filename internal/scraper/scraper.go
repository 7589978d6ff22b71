// Package scraper defines the contract every marketplace platform implements.
package scraper

import (
	"context"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Scraper searches one marketplace and fetches single listings from it.
type Scraper interface {
	// Name returns the source identifier stamped on every listing.
	Name() string

	// Search never returns an error: failures are reported through the
	// result's Status and Err, with an empty listing slice.
	Search(ctx context.Context, keyword string, opts types.SearchOptions) types.SearchResult

	// GetDetails fetches and normalizes one listing by absolute URL.
	GetDetails(ctx context.Context, url string) (types.Listing, error)

	// Shutdown releases any held resources. Transport-only scrapers return nil.
	Shutdown(ctx context.Context) error
}
