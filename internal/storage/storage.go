// Package storage exports search results to files.
package storage

import (
	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Exporter is the interface for all result exporters.
type Exporter interface {
	// Store writes a batch of listings.
	Store(listings []types.Listing) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the export format identifier.
	Name() string
}
