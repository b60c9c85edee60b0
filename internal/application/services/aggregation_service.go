package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/motorvalue/vehicle-valuation/internal/adapters/cache"
	"github.com/motorvalue/vehicle-valuation/internal/adapters/sources"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/providers"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/observability"
	"github.com/rs/zerolog"
)

// AggregationResult is the outcome of one aggregation pass
type AggregationResult struct {
	Listings        []entities.Listing
	PerSourceCounts map[string]int
	Enriched        bool
	ElapsedMs       int64
}

// AggregationService fetches listings from the primary source and, only
// when the primary yields too little, from secondary sources under rate
// limiting. Fetches within one pass are sequential; a failed or timed-out
// source reads as zero results.
type AggregationService struct {
	primary     providers.ListingSource
	alternate   providers.ListingSource
	registry    *sources.Registry
	registerFn  func(*sources.Registry)
	limiter     *sources.RateLimiter
	queryCache  *cache.QueryCache
	sufficiency int
	metrics     *observability.Metrics
	logger      zerolog.Logger

	registerOnce sync.Once
}

// NewAggregationService creates a new aggregation service. alternate is
// the secondary access strategy for the same logical source as primary
// and may be nil. registerFn performs the lazy registration of secondary
// sources and runs at most once, on the first pass that needs them.
func NewAggregationService(
	primary providers.ListingSource,
	alternate providers.ListingSource,
	registry *sources.Registry,
	registerFn func(*sources.Registry),
	limiter *sources.RateLimiter,
	queryCache *cache.QueryCache,
	sufficiency int,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *AggregationService {
	return &AggregationService{
		primary:     primary,
		alternate:   alternate,
		registry:    registry,
		registerFn:  registerFn,
		limiter:     limiter,
		queryCache:  queryCache,
		sufficiency: sufficiency,
		metrics:     metrics,
		logger:      logger.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate runs one aggregation pass for the criteria
func (s *AggregationService) Aggregate(ctx context.Context, criteria entities.SearchCriteria) *AggregationResult {
	start := time.Now()

	if s.queryCache != nil {
		if cached, ok := s.queryCache.Get(criteria); ok {
			observability.RecordCacheHit(ctx, s.metrics, "memory")
			return &AggregationResult{
				Listings:        cached,
				PerSourceCounts: countBySource(cached),
				ElapsedMs:       time.Since(start).Milliseconds(),
			}
		}
		observability.RecordCacheMiss(ctx, s.metrics, "memory")
	}

	perSource := make(map[string]int)

	merged := s.fetch(ctx, s.primary, criteria)
	perSource[s.primary.Name()] = len(merged)

	// Same logical source, different access strategy
	if len(merged) == 0 && s.alternate != nil && s.alternate.IsAvailable(ctx) {
		merged = s.fetch(ctx, s.alternate, criteria)
		perSource[s.alternate.Name()] = len(merged)
	}

	enriched := false
	if len(merged) < s.sufficiency {
		enriched = s.enrichFromSecondaries(ctx, criteria, &merged, perSource)
	}

	deduped := CrossSourceDedupe(merged)

	if s.queryCache != nil {
		s.queryCache.Set(criteria, deduped)
	}

	return &AggregationResult{
		Listings:        deduped,
		PerSourceCounts: perSource,
		Enriched:        enriched,
		ElapsedMs:       time.Since(start).Milliseconds(),
	}
}

func (s *AggregationService) enrichFromSecondaries(ctx context.Context, criteria entities.SearchCriteria, merged *[]entities.Listing, perSource map[string]int) bool {
	s.registerOnce.Do(func() {
		if s.registerFn != nil {
			s.registerFn(s.registry)
		}
	})

	secondaries := s.registry.ListByPriority()

	// Cheap sources go first; heavy-runtime sources are only consulted
	// when the light pass still leaves the sample short
	enriched := s.enrichPass(ctx, criteria, merged, perSource, secondaries, false)
	if len(*merged) < s.sufficiency {
		if s.enrichPass(ctx, criteria, merged, perSource, secondaries, true) {
			enriched = true
		}
	}
	return enriched
}

func (s *AggregationService) enrichPass(ctx context.Context, criteria entities.SearchCriteria, merged *[]entities.Listing, perSource map[string]int, secondaries []providers.ListingSource, heavy bool) bool {
	enriched := false
	for _, source := range secondaries {
		if source.RequiresHeavyRuntime() != heavy {
			continue
		}
		if source.Name() == s.primary.Name() {
			continue
		}
		if !s.limiter.Allow(source.Name()) {
			s.logger.Debug().Str("source", source.Name()).Msg("source rate limited, skipping")
			continue
		}

		listings := s.fetch(ctx, source, criteria)
		perSource[source.Name()] = len(listings)
		if len(listings) > 0 {
			*merged = append(*merged, listings...)
			enriched = true
		}
	}
	return enriched
}

func (s *AggregationService) fetch(ctx context.Context, source providers.ListingSource, criteria entities.SearchCriteria) []entities.Listing {
	start := time.Now()
	listings, err := source.FetchListings(ctx, criteria)
	observability.RecordSourceFetch(ctx, s.metrics, source.Name(), len(listings), time.Since(start))
	if err != nil {
		// A failed source is a source that returned nothing
		s.logger.Warn().Err(err).Str("source", source.Name()).Msg("source fetch failed")
		return nil
	}
	return listings
}

// CrossSourceDedupe removes the same vehicle listed on multiple sources,
// matching first on exact identifier and then on a coarse fingerprint.
// Input order decides the winner on collision, so callers put the primary
// source's listings first.
func CrossSourceDedupe(listings []entities.Listing) []entities.Listing {
	if len(listings) == 0 {
		return listings
	}

	seenIDs := make(map[string]struct{}, len(listings))
	seenPrints := make(map[string]struct{}, len(listings))
	result := make([]entities.Listing, 0, len(listings))

	for _, listing := range listings {
		if listing.ID != "" {
			if _, ok := seenIDs[listing.ID]; ok {
				continue
			}
		}
		fp := Fingerprint(listing)
		if _, ok := seenPrints[fp]; ok {
			continue
		}

		if listing.ID != "" {
			seenIDs[listing.ID] = struct{}{}
		}
		seenPrints[fp] = struct{}{}
		result = append(result, listing)
	}
	return result
}

// Fingerprint buckets a listing by rounded price, year and rounded
// mileage to detect the same vehicle across sources
func Fingerprint(listing entities.Listing) string {
	price := (listing.Price + 50) / 100 * 100
	mileage := (listing.Mileage + 500) / 1000 * 1000
	return strconv.Itoa(price) + "|" + strconv.Itoa(listing.Year) + "|" + strconv.Itoa(mileage)
}

func countBySource(listings []entities.Listing) map[string]int {
	counts := make(map[string]int)
	for _, listing := range listings {
		counts[listing.Source]++
	}
	return counts
}
