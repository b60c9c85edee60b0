package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/providers"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// APISourceConfig configures one JSON-API marketplace source
type APISourceConfig struct {
	Name         string
	BaseURL      string
	Priority     int
	FetchTimeout time.Duration
	PageSize     int
	MinPageFill  int
	PageDelay    time.Duration
	MaxPages     int
	HeavyRuntime bool
}

// APISource fetches listings from a marketplace JSON API. Pages are
// fetched sequentially with a delay between pages; pagination stops early
// once a page returns fewer than MinPageFill results. All calls run
// through a circuit breaker so a flapping source degrades to empty
// results instead of hammering the remote.
type APISource struct {
	cfg        APISourceConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// NewAPISource creates a new JSON-API listing source
func NewAPISource(cfg APISourceConfig, logger zerolog.Logger) *APISource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MinPageFill <= 0 {
		cfg.MinPageFill = 10
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("source circuit breaker state changed")
		},
	})

	return &APISource{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		breaker:    breaker,
		logger:     logger.With().Str("source", cfg.Name).Logger(),
	}
}

type apiListing struct {
	ID         string `json:"id"`
	Price      int    `json:"price"`
	Mileage    int    `json:"mileage"`
	Year       int    `json:"year"`
	FuelCode   string `json:"fuel_code"`
	SellerKind string `json:"seller_kind"`
}

type listingsPage struct {
	Listings []apiListing `json:"listings"`
	Total    int          `json:"total"`
	HasMore  bool         `json:"has_more"`
}

// FetchListings fetches all pages for the criteria
func (s *APISource) FetchListings(ctx context.Context, criteria entities.SearchCriteria) ([]entities.Listing, error) {
	var all []entities.Listing

	for page := 1; page <= s.cfg.MaxPages; page++ {
		if page > 1 && s.cfg.PageDelay > 0 {
			select {
			case <-ctx.Done():
				// A cancelled pass keeps whatever earlier pages returned
				s.logger.Warn().Int("page", page).Msg("fetch cancelled, returning partial results")
				return all, nil
			case <-time.After(s.cfg.PageDelay):
			}
		}

		result, err := s.breaker.Execute(func() (interface{}, error) {
			return s.fetchPage(ctx, criteria, page)
		})
		if err != nil {
			if len(all) > 0 {
				// Keep what earlier pages returned
				s.logger.Warn().Err(err).Int("page", page).Msg("page fetch failed, returning partial results")
				return all, nil
			}
			return nil, fmt.Errorf("fetch from %s failed: %w", s.cfg.Name, err)
		}

		pageResult := result.(*listingsPage)
		for _, raw := range pageResult.Listings {
			all = append(all, entities.Listing{
				ID:         raw.ID,
				Price:      raw.Price,
				Mileage:    raw.Mileage,
				Year:       raw.Year,
				FuelCode:   raw.FuelCode,
				SellerKind: entities.SellerKind(raw.SellerKind),
				Source:     s.cfg.Name,
			})
		}

		// A short page signals end-of-results
		if len(pageResult.Listings) < s.cfg.MinPageFill || !pageResult.HasMore {
			break
		}
	}

	return all, nil
}

func (s *APISource) fetchPage(ctx context.Context, criteria entities.SearchCriteria, page int) (*listingsPage, error) {
	endpoint, err := url.Parse(s.cfg.BaseURL + "/listings")
	if err != nil {
		return nil, fmt.Errorf("invalid source url: %w", err)
	}

	params := url.Values{}
	params.Set("brand", criteria.Brand)
	params.Set("model", criteria.Model)
	params.Set("year_min", strconv.Itoa(criteria.YearMin))
	params.Set("year_max", strconv.Itoa(criteria.YearMax))
	params.Set("mileage_min", strconv.Itoa(criteria.MileageMin))
	params.Set("mileage_max", strconv.Itoa(criteria.MileageMax))
	if criteria.MakeID != "" {
		params.Set("make_id", criteria.MakeID)
	}
	if criteria.ModelID != "" {
		params.Set("model_id", criteria.ModelID)
	}
	if criteria.Fuel != "" {
		params.Set("fuel", criteria.Fuel)
	}
	if criteria.Gearbox != "" {
		params.Set("gearbox", criteria.Gearbox)
	}
	if criteria.Variant != "" {
		params.Set("variant", criteria.Variant)
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(s.cfg.PageSize))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s returned status %d", s.cfg.Name, resp.StatusCode)
	}

	var result listingsPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode listings page: %w", err)
	}

	return &result, nil
}

// IsAvailable probes the source health endpoint
func (s *APISource) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Name returns the source tag
func (s *APISource) Name() string {
	return s.cfg.Name
}

// Priority returns the source priority; lower is tried first
func (s *APISource) Priority() int {
	return s.cfg.Priority
}

// RequiresHeavyRuntime reports whether the source needs expensive setup
func (s *APISource) RequiresHeavyRuntime() bool {
	return s.cfg.HeavyRuntime
}

var _ providers.ListingSource = (*APISource)(nil)
