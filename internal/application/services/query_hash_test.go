package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/motorvalue/vehicle-valuation/internal/application/services"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

func TestNormalizedPayload(t *testing.T) {
	criteria := entities.SearchCriteria{
		Brand:      "Volvo",
		Model:      "V60",
		YearMin:    2017,
		YearMax:    2019,
		MileageMin: 60000,
		MileageMax: 100000,
		Fuel:       "Diesel",
		Gearbox:    "Automatic",
	}

	payload := services.NormalizedPayload(criteria)

	assert.Equal(t,
		"brand:volvo|fuel:diesel|gearbox:automatic|mileage_max:100000|mileage_min:60000|model:v60|year_max:2019|year_min:2017",
		payload,
	)
}

func TestQueryHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		criteria := entities.SearchCriteria{Brand: "BMW", Model: "320d", YearMin: 2015, YearMax: 2017}
		assert.Equal(t, services.QueryHash(criteria), services.QueryHash(criteria))
	})

	t.Run("case insensitive on text fields", func(t *testing.T) {
		a := entities.SearchCriteria{Brand: "BMW", Model: "320D", Fuel: "DIESEL"}
		b := entities.SearchCriteria{Brand: "bmw", Model: "320d", Fuel: "diesel"}
		assert.Equal(t, services.QueryHash(a), services.QueryHash(b))
	})

	t.Run("window changes the hash", func(t *testing.T) {
		a := entities.SearchCriteria{Brand: "bmw", Model: "320d", YearMin: 2015, YearMax: 2017}
		b := a
		b.YearMax = 2018
		assert.NotEqual(t, services.QueryHash(a), services.QueryHash(b))
	})

	t.Run("base36 output", func(t *testing.T) {
		hash := services.QueryHash(entities.SearchCriteria{Brand: "bmw", Model: "320d"})
		assert.NotEmpty(t, hash)
		for _, r := range hash {
			assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z'), "unexpected rune %q", r)
		}
	})
}
