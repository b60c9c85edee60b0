package providers

import (
	"context"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

// ListingSource defines the interface every marketplace source implements.
// Sources may be unreliable, slow, or empty; a failed fetch is treated by
// callers as zero results, never as a user-facing error.
type ListingSource interface {
	// FetchListings returns the raw listings matching the criteria
	FetchListings(ctx context.Context, criteria entities.SearchCriteria) ([]entities.Listing, error)

	// IsAvailable probes whether the source is currently reachable
	IsAvailable(ctx context.Context) bool

	// Name returns the stable source tag
	Name() string

	// Priority orders secondary sources; lower is tried first
	Priority() int

	// RequiresHeavyRuntime marks sources that are expensive to initialize
	// (e.g. a headless browser) and should only run as secondaries
	RequiresHeavyRuntime() bool
}
