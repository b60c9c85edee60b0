package services

import (
	"math"
	"sort"
	"strconv"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/rs/zerolog"
)

// OutlierPolicy selects how implausible prices are removed from a sample
type OutlierPolicy string

const (
	// OutlierPercentileTrim keeps prices within interpolated percentile
	// bounds; skipped for samples smaller than 5
	OutlierPercentileTrim OutlierPolicy = "percentile_trim"

	// OutlierIQRFence keeps prices within Q1-1.5*IQR .. Q3+1.5*IQR;
	// skipped for samples smaller than 4
	OutlierIQRFence OutlierPolicy = "iqr_fence"
)

// ConfidenceThresholds drives the confidence classifier. Both calling
// conventions in this engine reduce to one classifier with different
// threshold sets.
type ConfidenceThresholds struct {
	HighSamples     int
	HighMaxIQRRatio float64
	MediumSamples   int
}

// StatsPreset bundles an outlier policy with confidence thresholds
type StatsPreset struct {
	Name       string
	Outlier    OutlierPolicy
	TrimLow    float64
	TrimHigh   float64
	Thresholds ConfidenceThresholds
}

// PresetFull is the production preset: IQR-fence outliers with the
// looser confidence thresholds.
func PresetFull() StatsPreset {
	return StatsPreset{
		Name:    "full",
		Outlier: OutlierIQRFence,
		Thresholds: ConfidenceThresholds{
			HighSamples:     30,
			HighMaxIQRRatio: 0.25,
			MediumSamples:   10,
		},
	}
}

// PresetStrict trims by percentile bounds and demands larger samples
func PresetStrict() StatsPreset {
	return StatsPreset{
		Name:     "strict",
		Outlier:  OutlierPercentileTrim,
		TrimLow:  10,
		TrimHigh: 90,
		Thresholds: ConfidenceThresholds{
			HighSamples:     40,
			HighMaxIQRRatio: 0.20,
			MediumSamples:   20,
		},
	}
}

// PresetByName resolves a preset from configuration, defaulting to full
func PresetByName(name string) StatsPreset {
	if name == "strict" {
		return PresetStrict()
	}
	return PresetFull()
}

// StatsService computes robust price statistics over listing samples
type StatsService struct {
	preset   StatsPreset
	minPrice int
	maxPrice int
	logger   zerolog.Logger
}

// NewStatsService creates a new statistics service
func NewStatsService(preset StatsPreset, minPrice, maxPrice int, logger zerolog.Logger) *StatsService {
	return &StatsService{
		preset:   preset,
		minPrice: minPrice,
		maxPrice: maxPrice,
		logger:   logger.With().Str("component", "stats").Logger(),
	}
}

// Preset returns the active preset
func (s *StatsService) Preset() StatsPreset {
	return s.preset
}

// Dedupe collapses repeated listings. The listing ID is the primary key;
// when absent, a key synthesized from price and mileage is used. Order of
// first occurrence is preserved.
func Dedupe(listings []entities.Listing) []entities.Listing {
	if len(listings) == 0 {
		return listings
	}

	seen := make(map[string]struct{}, len(listings))
	result := make([]entities.Listing, 0, len(listings))
	for _, listing := range listings {
		key := listing.ID
		if key == "" {
			key = synthKey(listing.Price, listing.Mileage)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, listing)
	}
	return result
}

func synthKey(price, mileage int) string {
	// Distinct prefix so synthesized keys never collide with real IDs
	return "~" + strconv.Itoa(price) + "|" + strconv.Itoa(mileage)
}

// Percentile computes the p-th percentile (0-100) of a sorted ascending
// sample using linear interpolation. Empty samples yield 0; a single
// value is returned for any p.
func Percentile(sorted []int, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return float64(sorted[0])
	}

	index := (p / 100) * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	return float64(sorted[lower])*(1-weight) + float64(sorted[upper])*weight
}

// FilterOutliers applies the configured outlier policy to a price sample.
// Samples below the policy's minimum size are returned unchanged.
func (s *StatsService) FilterOutliers(prices []int) []int {
	switch s.preset.Outlier {
	case OutlierPercentileTrim:
		return TrimByPercentile(prices, s.preset.TrimLow, s.preset.TrimHigh)
	case OutlierIQRFence:
		return FenceByIQR(prices)
	}
	return prices
}

// TrimByPercentile keeps prices within the interpolated low/high
// percentile bounds. Samples smaller than 5 are too small to trust
// percentile bounds and pass through untouched.
func TrimByPercentile(prices []int, low, high float64) []int {
	if len(prices) < 5 {
		return prices
	}

	sorted := sortedCopy(prices)
	lowBound := Percentile(sorted, low)
	highBound := Percentile(sorted, high)

	result := make([]int, 0, len(prices))
	for _, price := range prices {
		if float64(price) >= lowBound && float64(price) <= highBound {
			result = append(result, price)
		}
	}
	return result
}

// FenceByIQR keeps prices within the Tukey fences Q1-1.5*IQR and
// Q3+1.5*IQR. Samples smaller than 4 pass through untouched.
func FenceByIQR(prices []int) []int {
	if len(prices) < 4 {
		return prices
	}

	sorted := sortedCopy(prices)
	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	lowerBound := q1 - 1.5*iqr
	upperBound := q3 + 1.5*iqr

	result := make([]int, 0, len(prices))
	for _, price := range prices {
		if float64(price) >= lowerBound && float64(price) <= upperBound {
			result = append(result, price)
		}
	}
	return result
}

// Classify maps sample size and IQR ratio to a confidence label. It is
// monotonic in both arguments.
func Classify(n int, iqrRatio float64, t ConfidenceThresholds) entities.Confidence {
	if n >= t.HighSamples && iqrRatio <= t.HighMaxIQRRatio {
		return entities.ConfidenceHigh
	}
	if n >= t.MediumSamples {
		return entities.ConfidenceMedium
	}
	return entities.ConfidenceLow
}

// ComputeStats runs the full statistics pipeline over a raw listing
// sample. Every stage may empty the sample; each is an early exit
// returning nil, never a panic.
func (s *StatsService) ComputeStats(listings []entities.Listing) *entities.RobustStats {
	if len(listings) == 0 {
		return nil
	}

	deduped := Dedupe(listings)
	if len(deduped) == 0 {
		return nil
	}

	dealerCount := 0
	privateCount := 0
	prices := make([]int, 0, len(deduped))
	for _, listing := range deduped {
		// Dealer is the default when the seller kind is unspecified
		if listing.SellerKind == entities.SellerPrivate {
			privateCount++
		} else {
			dealerCount++
		}
		if listing.Price > s.minPrice && listing.Price < s.maxPrice {
			prices = append(prices, listing.Price)
		}
	}
	if len(prices) == 0 {
		return nil
	}

	clean := s.FilterOutliers(prices)
	if len(clean) == 0 {
		return nil
	}

	sorted := sortedCopy(clean)

	p25 := int(math.Round(Percentile(sorted, 25)))
	p50 := int(math.Round(Percentile(sorted, 50)))
	p75 := int(math.Round(Percentile(sorted, 75)))

	iqr := p75 - p25
	iqrRatio := 0.0
	if p50 != 0 {
		iqrRatio = float64(iqr) / float64(p50)
	}

	return &entities.RobustStats{
		RawCount:     len(listings),
		DedupedCount: len(deduped),
		CleanCount:   len(clean),
		DealerCount:  dealerCount,
		PrivateCount: privateCount,
		P25:          p25,
		P50:          p50,
		P75:          p75,
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		IQR:          iqr,
		IQRRatio:     iqrRatio,
		Confidence:   Classify(len(clean), iqrRatio, s.preset.Thresholds),
	}
}

func sortedCopy(prices []int) []int {
	sorted := make([]int, len(prices))
	copy(sorted, prices)
	sort.Ints(sorted)
	return sorted
}
