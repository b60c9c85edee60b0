package sources_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorvalue/vehicle-valuation/internal/adapters/sources"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

type pageResponse struct {
	Listings []map[string]interface{} `json:"listings"`
	Total    int                      `json:"total"`
	HasMore  bool                     `json:"has_more"`
}

func pageOf(n, basePrice int, hasMore bool) pageResponse {
	listings := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		listings = append(listings, map[string]interface{}{
			"id":          "x" + strconv.Itoa(basePrice+i),
			"price":       basePrice + i*100,
			"mileage":     80000,
			"year":        2018,
			"seller_kind": "dealer",
		})
	}
	return pageResponse{Listings: listings, Total: n, HasMore: hasMore}
}

func newAPISource(baseURL string) *sources.APISource {
	return sources.NewAPISource(sources.APISourceConfig{
		Name:        "marketplace",
		BaseURL:     baseURL,
		PageSize:    20,
		MinPageFill: 10,
		MaxPages:    5,
	}, zerolog.Nop())
}

func TestAPISourceFetchListings(t *testing.T) {
	t.Run("follows pagination until a short page", func(t *testing.T) {
		var requestedPages []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/listings", r.URL.Path)
			page := r.URL.Query().Get("page")
			requestedPages = append(requestedPages, page)

			response := pageOf(20, 10000, true)
			if page == "3" {
				response = pageOf(4, 30000, false)
			}
			json.NewEncoder(w).Encode(response)
		}))
		defer server.Close()

		listings, err := newAPISource(server.URL).FetchListings(context.Background(), entities.SearchCriteria{
			Brand: "volvo", Model: "v60",
		})

		require.NoError(t, err)
		assert.Len(t, listings, 44)
		assert.Equal(t, []string{"1", "2", "3"}, requestedPages)
		assert.Equal(t, "marketplace", listings[0].Source)
		assert.Equal(t, entities.SellerDealer, listings[0].SellerKind)
	})

	t.Run("forwards the criteria as query parameters", func(t *testing.T) {
		var query map[string][]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			json.NewEncoder(w).Encode(pageOf(2, 10000, false))
		}))
		defer server.Close()

		_, err := newAPISource(server.URL).FetchListings(context.Background(), entities.SearchCriteria{
			Brand:      "volvo",
			Model:      "v60",
			YearMin:    2016,
			YearMax:    2020,
			MileageMin: 40000,
			MileageMax: 120000,
			Fuel:       "diesel",
		})

		require.NoError(t, err)
		assert.Equal(t, "volvo", query["brand"][0])
		assert.Equal(t, "2016", query["year_min"][0])
		assert.Equal(t, "120000", query["mileage_max"][0])
		assert.Equal(t, "diesel", query["fuel"][0])
		// Empty optional filters are omitted entirely
		assert.NotContains(t, query, "gearbox")
		assert.NotContains(t, query, "variant")
	})

	t.Run("keeps partial results when a later page fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			json.NewEncoder(w).Encode(pageOf(20, 10000, true))
		}))
		defer server.Close()

		listings, err := newAPISource(server.URL).FetchListings(context.Background(), entities.SearchCriteria{
			Brand: "volvo", Model: "v60",
		})

		require.NoError(t, err)
		assert.Len(t, listings, 20)
	})

	t.Run("cancellation mid-pagination keeps earlier pages", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var pages int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pages++
			json.NewEncoder(w).Encode(pageOf(20, 10000, true))
			// Cancel during the delay before the next page
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
		}))
		defer server.Close()

		source := sources.NewAPISource(sources.APISourceConfig{
			Name:        "marketplace",
			BaseURL:     server.URL,
			PageSize:    20,
			MinPageFill: 10,
			MaxPages:    5,
			PageDelay:   200 * time.Millisecond,
		}, zerolog.Nop())

		listings, err := source.FetchListings(ctx, entities.SearchCriteria{Brand: "volvo", Model: "v60"})

		require.NoError(t, err)
		assert.Len(t, listings, 20)
		assert.Equal(t, 1, pages)
	})

	t.Run("first page failure is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := newAPISource(server.URL).FetchListings(context.Background(), entities.SearchCriteria{
			Brand: "volvo", Model: "v60",
		})

		assert.Error(t, err)
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		source := newAPISource(server.URL)
		for i := 0; i < 3; i++ {
			_, err := source.FetchListings(context.Background(), entities.SearchCriteria{Brand: "volvo", Model: "v60"})
			require.Error(t, err)
		}

		_, err := source.FetchListings(context.Background(), entities.SearchCriteria{Brand: "volvo", Model: "v60"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circuit breaker is open")
	})
}

func TestAPISourceIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			fmt.Fprint(w, "ok")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := newAPISource(server.URL)
	assert.True(t, source.IsAvailable(context.Background()))

	server.Close()
	assert.False(t, source.IsAvailable(context.Background()))
}
