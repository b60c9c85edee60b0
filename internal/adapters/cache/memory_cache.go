package cache

import (
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

// QueryCache is the bounded in-process tier of the cache layer. It holds
// the listings fetched for recent identical queries, keyed by a
// deterministic serialization of the full criteria set. Entries expire
// after the TTL; the least recently used entry is evicted on overflow.
// The underlying LRU serializes concurrent access internally.
type QueryCache struct {
	lru *expirable.LRU[string, []entities.Listing]
}

// NewQueryCache creates a bounded in-process query cache
func NewQueryCache(maxEntries int, ttl time.Duration) *QueryCache {
	return &QueryCache{
		lru: expirable.NewLRU[string, []entities.Listing](maxEntries, nil, ttl),
	}
}

// Get returns the cached listings for the criteria, if present
func (c *QueryCache) Get(criteria entities.SearchCriteria) ([]entities.Listing, bool) {
	return c.lru.Get(QueryKey(criteria))
}

// Set stores the listings fetched for the criteria
func (c *QueryCache) Set(criteria entities.SearchCriteria, listings []entities.Listing) {
	c.lru.Add(QueryKey(criteria), listings)
}

// Len returns the number of live entries
func (c *QueryCache) Len() int {
	return c.lru.Len()
}

// QueryKey serializes the criteria into the in-process cache key.
// Fields are emitted as a JSON object keyed by name; Go marshals map keys
// in sorted order, so key order never affects the cache key.
func QueryKey(criteria entities.SearchCriteria) string {
	fields := map[string]interface{}{
		"brand":       criteria.Brand,
		"model":       criteria.Model,
		"make_id":     criteria.MakeID,
		"model_id":    criteria.ModelID,
		"year_min":    criteria.YearMin,
		"year_max":    criteria.YearMax,
		"mileage_min": criteria.MileageMin,
		"mileage_max": criteria.MileageMax,
		"fuel":        criteria.Fuel,
		"gearbox":     criteria.Gearbox,
		"variant":     criteria.Variant,
	}
	data, _ := json.Marshal(fields)
	return string(data)
}
