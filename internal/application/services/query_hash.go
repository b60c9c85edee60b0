package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

// NormalizedPayload renders the criteria as `key:lowercased-value` pairs
// sorted by key and joined by `|`. This exact string feeds the durable
// store query hash, so its format is stable.
func NormalizedPayload(criteria entities.SearchCriteria) string {
	pairs := map[string]string{
		"brand":       strings.ToLower(criteria.Brand),
		"model":       strings.ToLower(criteria.Model),
		"fuel":        strings.ToLower(criteria.Fuel),
		"gearbox":     strings.ToLower(criteria.Gearbox),
		"year_min":    strconv.Itoa(criteria.YearMin),
		"year_max":    strconv.Itoa(criteria.YearMax),
		"mileage_min": strconv.Itoa(criteria.MileageMin),
		"mileage_max": strconv.Itoa(criteria.MileageMax),
	}

	keys := make([]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+":"+pairs[key])
	}
	return strings.Join(parts, "|")
}

// QueryHash collapses the normalized payload into a base-36 string via a
// 32-bit rolling hash. Collisions are an accepted, low-probability
// cache-correctness risk.
func QueryHash(criteria entities.SearchCriteria) string {
	payload := NormalizedPayload(criteria)

	var h uint32
	for i := 0; i < len(payload); i++ {
		h = h*31 + uint32(payload[i])
	}
	return strconv.FormatUint(uint64(h), 36)
}
