package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/repositories"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/observability"
	apperrors "github.com/motorvalue/vehicle-valuation/pkg/errors"
	"github.com/rs/zerolog"
)

// Aggregator is the listing fetch layer consumed by the escalator
type Aggregator interface {
	Aggregate(ctx context.Context, criteria entities.SearchCriteria) *AggregationResult
}

// ValuationConfig holds the escalator and cache-guard tunables
type ValuationConfig struct {
	Strategies        []entities.Strategy
	MinCleanSample    int
	MinCachedSample   int
	MinPlausiblePrice int
	SuspiciousMedian  int
	SuspiciousSample  int
	MaxIQRRatio       float64
	MaxSpreadRatio    float64
	DurableTTL        time.Duration
}

// DefaultValuationConfig returns the standard escalator configuration
func DefaultValuationConfig() ValuationConfig {
	return ValuationConfig{
		Strategies:        entities.DefaultStrategies(),
		MinCleanSample:    3,
		MinCachedSample:   5,
		MinPlausiblePrice: 200,
		SuspiciousMedian:  3000,
		SuspiciousSample:  8,
		MaxIQRRatio:       1.2,
		MaxSpreadRatio:    12,
		DurableTTL:        24 * time.Hour,
	}
}

// ValuationService runs the search-escalation engine: for each strategy
// in the ladder it consults the durable cache, then the aggregator,
// computes robust statistics and either returns a result or widens the
// search. Nothing in here is fatal; every failure mode degrades to the
// next strategy or a structured error.
type ValuationService struct {
	cfg        ValuationConfig
	stats      *StatsService
	adjuster   *ConditionAdjuster
	aggregator Aggregator
	store      repositories.StatsCacheRepository
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewValuationService creates a new valuation service. store may be nil;
// the engine then runs without the durable cache tier.
func NewValuationService(
	cfg ValuationConfig,
	stats *StatsService,
	adjuster *ConditionAdjuster,
	aggregator Aggregator,
	store repositories.StatsCacheRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *ValuationService {
	return &ValuationService{
		cfg:        cfg,
		stats:      stats,
		adjuster:   adjuster,
		aggregator: aggregator,
		store:      store,
		metrics:    metrics,
		logger:     logger.With().Str("component", "valuation").Logger(),
	}
}

// ValidateRequest checks user input before any fetch occurs
func ValidateRequest(req *entities.ValuationRequest) *apperrors.AppError {
	if req.Brand == "" {
		return apperrors.NewValidationError("brand is required")
	}
	if req.Model == "" {
		return apperrors.NewValidationError("model is required")
	}
	currentYear := time.Now().Year()
	if req.Year < 1950 || req.Year > currentYear+1 {
		return apperrors.NewValidationError(fmt.Sprintf("year must be between 1950 and %d", currentYear+1))
	}
	if req.Mileage < 0 {
		return apperrors.NewValidationError("mileage must not be negative")
	}
	if !req.Condition.Valid() {
		return apperrors.NewValidationError("condition must be one of poor, normal, excellent")
	}
	return nil
}

// Valuate runs the full valuation pipeline for one request
func (s *ValuationService) Valuate(ctx context.Context, req *entities.ValuationRequest) (*entities.ValuationResult, *entities.ValuationError) {
	start := time.Now()

	base := entities.SearchCriteria{
		Brand:   req.Brand,
		Model:   req.Model,
		MakeID:  req.MakeID,
		ModelID: req.ModelID,
		Fuel:    req.Fuel,
		Gearbox: req.Gearbox,
		Variant: req.Variant,
	}

	for _, strategy := range s.cfg.Strategies {
		criteria := strategy.Apply(base, req.Year, req.Mileage)
		queryHash := QueryHash(criteria)
		logger := s.logger.With().
			Str("strategy", strategy.Name).
			Str("query_hash", queryHash).
			Logger()

		if record := s.lookupDurable(ctx, queryHash); record != nil {
			logger.Info().Int("listing_count", record.ListingCount).Msg("durable cache hit")
			result := s.resultFromCache(record, strategy, criteria, req)
			observability.RecordValuation(ctx, s.metrics, "cached", strategy.Name, time.Since(start))
			return result, nil
		}

		aggregated := s.aggregator.Aggregate(ctx, criteria)
		stats := s.stats.ComputeStats(aggregated.Listings)
		if stats == nil || stats.CleanCount < s.cfg.MinCleanSample {
			logger.Info().
				Int("raw", len(aggregated.Listings)).
				Msg("insufficient sample, widening search")
			continue
		}

		s.persistStats(ctx, queryHash, criteria, stats, aggregated, logger)

		result := s.resultFromStats(stats, strategy, criteria, req)
		observability.RecordValuation(ctx, s.metrics, "fresh", strategy.Name, time.Since(start))
		logger.Info().
			Int("clean_count", stats.CleanCount).
			Int("median", stats.P50).
			Str("confidence", string(stats.Confidence)).
			Msg("valuation computed")
		return result, nil
	}

	verr := s.probeExhausted(ctx, base, req)
	observability.RecordValuation(ctx, s.metrics, "exhausted", "", time.Since(start))
	return nil, verr
}

// lookupDurable returns a usable cached record or nil. Store failures
// degrade to a miss.
func (s *ValuationService) lookupDurable(ctx context.Context, queryHash string) *entities.CachedQueryRecord {
	if s.store == nil {
		return nil
	}
	record, err := s.store.GetCachedStats(ctx, queryHash)
	if err != nil {
		observability.RecordCacheMiss(ctx, s.metrics, "durable")
		return nil
	}
	if record.ListingCount < s.cfg.MinCachedSample {
		observability.RecordCacheMiss(ctx, s.metrics, "durable")
		return nil
	}
	observability.RecordCacheHit(ctx, s.metrics, "durable")
	return record
}

// persistStats writes the computed stats through the cache-write guard.
// A rejected or failed write is logged and never fails the request.
func (s *ValuationService) persistStats(ctx context.Context, queryHash string, criteria entities.SearchCriteria, stats *entities.RobustStats, aggregated *AggregationResult, logger zerolog.Logger) {
	if s.store == nil {
		return
	}

	if reason := s.checkCacheWrite(stats); reason != "" {
		logger.Warn().Str("reason", reason).Msg("cache write rejected")
		return
	}

	now := time.Now().UTC()
	record := &entities.CachedQueryRecord{
		QueryHash:     queryHash,
		FilterPayload: NormalizedPayload(criteria),
		Source:        dominantSource(aggregated.PerSourceCounts),
		ListingCount:  stats.CleanCount,
		P25:           stats.P25,
		P50:           stats.P50,
		P75:           stats.P75,
		MinPrice:      stats.Min,
		MaxPrice:      stats.Max,
		IQRRatio:      stats.IQRRatio,
		DealerCount:   stats.DealerCount,
		PrivateCount:  stats.PrivateCount,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.DurableTTL),
	}

	if err := s.store.UpsertStats(ctx, record); err != nil {
		logger.Warn().Err(err).Msg("durable cache write failed")
		return
	}

	// Opportunistic reaping of rows the lazy expiry left behind
	go func() {
		purgeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.store.Purge(purgeCtx, time.Now().UTC()); err != nil {
			s.logger.Debug().Err(err).Msg("cache purge failed")
		}
	}()
}

// checkCacheWrite is the fail-closed sanity gate guarding the durable
// store against implausible figures. It returns the rejection reason, or
// "" when the write may proceed.
func (s *ValuationService) checkCacheWrite(stats *entities.RobustStats) string {
	if stats.P25 < s.cfg.MinPlausiblePrice {
		return "p25 below plausible price floor"
	}
	// Guards against unit confusion, e.g. monthly lease rates read as
	// purchase prices
	if stats.P50 < s.cfg.SuspiciousMedian && stats.CleanCount < s.cfg.SuspiciousSample {
		return "suspiciously low median on a small sample"
	}
	if stats.IQRRatio > s.cfg.MaxIQRRatio {
		return "dispersion above ceiling"
	}
	if stats.Min > 0 && float64(stats.Max)/float64(stats.Min) > s.cfg.MaxSpreadRatio {
		return "max/min spread above ceiling"
	}
	return ""
}

func (s *ValuationService) resultFromCache(record *entities.CachedQueryRecord, strategy entities.Strategy, criteria entities.SearchCriteria, req *entities.ValuationRequest) *entities.ValuationResult {
	low := s.adjuster.Adjust(record.P25, req.Condition)
	median := s.adjuster.Adjust(record.P50, req.Condition)
	high := s.adjuster.Adjust(record.P75, req.Condition)

	return &entities.ValuationResult{
		PriceLow:     low,
		PriceHigh:    high,
		Median:       median,
		DealerPrice:  s.adjuster.DealerOffer(median),
		SampleSize:   record.ListingCount,
		DealerCount:  record.DealerCount,
		PrivateCount: record.PrivateCount,
		Confidence:   Classify(record.ListingCount, record.IQRRatio, s.stats.Preset().Thresholds),
		Explanation:  explanation(record.ListingCount, strategy),
		Window:       windowOf(strategy, criteria),
		Cached:       true,
		RequestID:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
	}
}

func (s *ValuationService) resultFromStats(stats *entities.RobustStats, strategy entities.Strategy, criteria entities.SearchCriteria, req *entities.ValuationRequest) *entities.ValuationResult {
	low := s.adjuster.Adjust(stats.P25, req.Condition)
	median := s.adjuster.Adjust(stats.P50, req.Condition)
	high := s.adjuster.Adjust(stats.P75, req.Condition)

	return &entities.ValuationResult{
		PriceLow:     low,
		PriceHigh:    high,
		Median:       median,
		DealerPrice:  s.adjuster.DealerOffer(median),
		SampleSize:   stats.CleanCount,
		DealerCount:  stats.DealerCount,
		PrivateCount: stats.PrivateCount,
		Confidence:   stats.Confidence,
		Explanation:  explanation(stats.CleanCount, strategy),
		Window:       windowOf(strategy, criteria),
		Cached:       false,
		RequestID:    uuid.New().String(),
		Timestamp:    time.Now().UTC(),
	}
}

// probeExhausted runs one maximally permissive fetch to tell "model not
// on the market" apart from "criteria too narrow"
func (s *ValuationService) probeExhausted(ctx context.Context, base entities.SearchCriteria, req *entities.ValuationRequest) *entities.ValuationError {
	probe := base
	probe.Fuel = ""
	probe.Gearbox = ""
	probe.Variant = ""
	probe.YearMin = req.Year - 10
	probe.YearMax = req.Year + 10
	probe.MileageMin = 0
	probe.MileageMax = 1000000

	aggregated := s.aggregator.Aggregate(ctx, probe)
	if len(aggregated.Listings) == 0 {
		s.logger.Info().Str("brand", req.Brand).Str("model", req.Model).Msg("model not found in market")
		return &entities.ValuationError{
			Message:    fmt.Sprintf("no listings found for %s %s", req.Brand, req.Model),
			Suggestion: "check the brand and model spelling, or try a related model",
		}
	}

	return &entities.ValuationError{
		Message: "no listings match these exact criteria",
		Suggestion: fmt.Sprintf(
			"%d loosely matching listings exist; widen the year or mileage range",
			len(aggregated.Listings),
		),
	}
}

func explanation(sampleSize int, strategy entities.Strategy) string {
	return fmt.Sprintf(
		"Based on %d comparable listings within ±%d years and ±%d km (%s search window).",
		sampleSize, strategy.YearSpan, strategy.MileageSpan, strategy.Name,
	)
}

func windowOf(strategy entities.Strategy, criteria entities.SearchCriteria) entities.SearchWindow {
	return entities.SearchWindow{
		Strategy:   strategy.Name,
		YearMin:    criteria.YearMin,
		YearMax:    criteria.YearMax,
		MileageMin: criteria.MileageMin,
		MileageMax: criteria.MileageMax,
	}
}

func dominantSource(counts map[string]int) string {
	best := ""
	bestCount := -1
	for source, count := range counts {
		if count > bestCount || (count == bestCount && source < best) {
			best = source
			bestCount = count
		}
	}
	if best == "" {
		return "aggregate"
	}
	return best
}
