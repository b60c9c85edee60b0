package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/providers"
	"github.com/rs/zerolog"
)

// BrowserSource is the heavy-runtime access strategy for a marketplace:
// it renders the search results page in headless Chrome and reads the
// listing state the page embeds for its own frontend. It exists for
// sources whose plain API rejects or empties out, and is only consulted
// as a secondary. The browser is allocated lazily on first fetch.
type BrowserSource struct {
	name     string
	baseURL  string
	priority int
	timeout  time.Duration
	logger   zerolog.Logger

	mu       sync.Mutex
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowserSource creates a headless-browser listing source
func NewBrowserSource(name, baseURL string, priority int, timeout time.Duration, logger zerolog.Logger) *BrowserSource {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &BrowserSource{
		name:     name,
		baseURL:  baseURL,
		priority: priority,
		timeout:  timeout,
		logger:   logger.With().Str("source", name).Logger(),
	}
}

func (s *BrowserSource) allocator() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allocCtx == nil {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1280, 900),
		)
		s.allocCtx, s.cancel = chromedp.NewExecAllocator(context.Background(), opts...)
		s.logger.Info().Msg("headless browser allocator initialized")
	}
	return s.allocCtx
}

// FetchListings renders the search page and extracts the listing state
func (s *BrowserSource) FetchListings(ctx context.Context, criteria entities.SearchCriteria) ([]entities.Listing, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.allocator(), chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.timeout)
	defer cancelTimeout()

	go func() {
		// Propagate caller cancellation into the tab
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	var stateJSON string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(s.searchURL(criteria)),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`JSON.stringify(window.__SEARCH_STATE__ ? window.__SEARCH_STATE__.listings : [])`, &stateJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("browser fetch from %s failed: %w", s.name, err)
	}

	var raw []apiListing
	if err := json.Unmarshal([]byte(stateJSON), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode embedded listing state: %w", err)
	}

	listings := make([]entities.Listing, 0, len(raw))
	for _, item := range raw {
		listings = append(listings, entities.Listing{
			ID:         item.ID,
			Price:      item.Price,
			Mileage:    item.Mileage,
			Year:       item.Year,
			FuelCode:   item.FuelCode,
			SellerKind: entities.SellerKind(item.SellerKind),
			Source:     s.name,
		})
	}

	return listings, nil
}

func (s *BrowserSource) searchURL(criteria entities.SearchCriteria) string {
	params := url.Values{}
	params.Set("brand", criteria.Brand)
	params.Set("model", criteria.Model)
	params.Set("year_from", strconv.Itoa(criteria.YearMin))
	params.Set("year_to", strconv.Itoa(criteria.YearMax))
	params.Set("km_from", strconv.Itoa(criteria.MileageMin))
	params.Set("km_to", strconv.Itoa(criteria.MileageMax))
	if criteria.Fuel != "" {
		params.Set("fuel", criteria.Fuel)
	}
	if criteria.Gearbox != "" {
		params.Set("gearbox", criteria.Gearbox)
	}
	return s.baseURL + "/search?" + params.Encode()
}

// IsAvailable reports whether the browser runtime can be used
func (s *BrowserSource) IsAvailable(ctx context.Context) bool {
	return true
}

// Name returns the source tag
func (s *BrowserSource) Name() string {
	return s.name
}

// Priority returns the source priority; lower is tried first
func (s *BrowserSource) Priority() int {
	return s.priority
}

// RequiresHeavyRuntime is true: this source boots a headless browser
func (s *BrowserSource) RequiresHeavyRuntime() bool {
	return true
}

// Close tears down the browser allocator
func (s *BrowserSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.allocCtx = nil
		s.cancel = nil
	}
}

var _ providers.ListingSource = (*BrowserSource)(nil)
