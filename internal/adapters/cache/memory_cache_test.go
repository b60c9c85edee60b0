package cache_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motorvalue/vehicle-valuation/internal/adapters/cache"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

func criteriaFor(model string) entities.SearchCriteria {
	return entities.SearchCriteria{
		Brand:      "bmw",
		Model:      model,
		YearMin:    2015,
		YearMax:    2017,
		MileageMin: 40000,
		MileageMax: 120000,
	}
}

func TestQueryCacheRoundTrip(t *testing.T) {
	qc := cache.NewQueryCache(8, time.Minute)
	listings := []entities.Listing{{ID: "a", Price: 15000, Year: 2016, Mileage: 90000}}

	qc.Set(criteriaFor("320d"), listings)

	got, ok := qc.Get(criteriaFor("320d"))
	require.True(t, ok)
	assert.Equal(t, listings, got)

	_, ok = qc.Get(criteriaFor("330d"))
	assert.False(t, ok)
}

func TestQueryCacheKeyCoversAllFields(t *testing.T) {
	a := criteriaFor("320d")
	b := a
	b.Gearbox = "manual"

	assert.NotEqual(t, cache.QueryKey(a), cache.QueryKey(b))

	c := a
	c.Variant = "touring"
	assert.NotEqual(t, cache.QueryKey(a), cache.QueryKey(c))
}

func TestQueryCacheEvictsOnOverflow(t *testing.T) {
	qc := cache.NewQueryCache(4, time.Minute)

	for i := 0; i < 6; i++ {
		qc.Set(criteriaFor("model"+strconv.Itoa(i)), []entities.Listing{{ID: strconv.Itoa(i)}})
	}

	assert.Equal(t, 4, qc.Len())
	// The oldest entries are the evicted ones
	_, ok := qc.Get(criteriaFor("model0"))
	assert.False(t, ok)
	_, ok = qc.Get(criteriaFor("model5"))
	assert.True(t, ok)
}

func TestQueryCacheExpiresEntries(t *testing.T) {
	qc := cache.NewQueryCache(8, 20*time.Millisecond)

	qc.Set(criteriaFor("320d"), []entities.Listing{{ID: "a"}})
	time.Sleep(50 * time.Millisecond)

	_, ok := qc.Get(criteriaFor("320d"))
	assert.False(t, ok)
}
