package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/motorvalue/vehicle-valuation/internal/application/services"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

func newAdjuster() *services.ConditionAdjuster {
	return services.NewConditionAdjuster(services.DefaultConditionFactors(), 0.12, 50)
}

func TestConditionAdjust(t *testing.T) {
	adjuster := newAdjuster()

	t.Run("poor shifts down seven percent", func(t *testing.T) {
		assert.Equal(t, 9300, adjuster.Adjust(10000, entities.ConditionPoor))
	})

	t.Run("excellent shifts up five percent", func(t *testing.T) {
		assert.Equal(t, 10500, adjuster.Adjust(10000, entities.ConditionExcellent))
	})

	t.Run("normal is identity", func(t *testing.T) {
		assert.Equal(t, 10000, adjuster.Adjust(10000, entities.ConditionNormal))
	})

	t.Run("unknown condition is identity", func(t *testing.T) {
		assert.Equal(t, 10000, adjuster.Adjust(10000, entities.Condition("mint")))
		assert.Equal(t, 10000, adjuster.Adjust(10000, entities.Condition("")))
	})

	t.Run("rounds to the whole unit", func(t *testing.T) {
		// 10001 * 0.93 = 9300.93
		assert.Equal(t, 9301, adjuster.Adjust(10001, entities.ConditionPoor))
	})
}

func TestDealerOffer(t *testing.T) {
	adjuster := newAdjuster()

	t.Run("discounted and floored to the rounding unit", func(t *testing.T) {
		// 10000 * 0.88 = 8800, already a multiple of 50
		assert.Equal(t, 8800, adjuster.DealerOffer(10000))
		// 10115 * 0.88 = 8901.2, floors to 8900
		assert.Equal(t, 8900, adjuster.DealerOffer(10115))
	})

	t.Run("always a multiple of the unit and below the median", func(t *testing.T) {
		for median := 100; median <= 50000; median += 137 {
			offer := adjuster.DealerOffer(median)
			assert.Zero(t, offer%adjuster.RoundingUnit(), "median=%d", median)
			assert.Less(t, offer, median, "median=%d", median)
			assert.GreaterOrEqual(t, offer, 0, "median=%d", median)
		}
	})

	t.Run("tiny medians never go negative", func(t *testing.T) {
		assert.GreaterOrEqual(t, adjuster.DealerOffer(40), 0)
		assert.GreaterOrEqual(t, adjuster.DealerOffer(0), 0)
	})
}
