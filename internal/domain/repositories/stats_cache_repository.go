package repositories

import (
	"context"
	"time"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

// StatsCacheRepository is the durable keyed store fronting recomputation
// of market statistics. Both operations may fail; callers must degrade to
// "proceed without cache" rather than fail the request.
type StatsCacheRepository interface {
	// GetCachedStats returns the record for the query hash, or a
	// not-found error when absent or expired
	GetCachedStats(ctx context.Context, queryHash string) (*entities.CachedQueryRecord, error)

	// UpsertStats writes or refreshes the record keyed by its query hash.
	// Last writer wins on the mutable fields.
	UpsertStats(ctx context.Context, record *entities.CachedQueryRecord) error

	// Purge physically removes records expired before the given time
	Purge(ctx context.Context, now time.Time) (int, error)
}
