package services

import (
	"math"

	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
)

// ConditionFactors maps vehicle condition to a multiplicative price shift
type ConditionFactors map[entities.Condition]float64

// DefaultConditionFactors returns the standard factor table
func DefaultConditionFactors() ConditionFactors {
	return ConditionFactors{
		entities.ConditionPoor:      -0.07,
		entities.ConditionNormal:    0,
		entities.ConditionExcellent: 0.05,
	}
}

// ConditionAdjuster shifts computed prices by the vehicle-condition
// factor. Displayed percentile figures round to the whole currency unit;
// the dealer offer additionally applies the dealer discount and rounds
// down to the configured rounding unit.
type ConditionAdjuster struct {
	factors        ConditionFactors
	dealerDiscount float64
	roundingUnit   int
}

// NewConditionAdjuster creates a condition adjuster
func NewConditionAdjuster(factors ConditionFactors, dealerDiscount float64, roundingUnit int) *ConditionAdjuster {
	if roundingUnit <= 0 {
		roundingUnit = 50
	}
	return &ConditionAdjuster{
		factors:        factors,
		dealerDiscount: dealerDiscount,
		roundingUnit:   roundingUnit,
	}
}

// Adjust applies the condition factor and rounds to the whole unit.
// Normal and unknown conditions are identity.
func (a *ConditionAdjuster) Adjust(price int, condition entities.Condition) int {
	factor, ok := a.factors[condition]
	if !ok || factor == 0 {
		return price
	}
	return int(math.Round(float64(price) * (1 + factor)))
}

// DealerOffer derives the dealer buy price from the adjusted median:
// the dealer discount is applied, then the result is rounded down to the
// rounding unit so the offer is always a multiple of the unit and
// strictly below the adjusted median.
func (a *ConditionAdjuster) DealerOffer(adjustedMedian int) int {
	offer := float64(adjustedMedian) * (1 - a.dealerDiscount)
	rounded := int(offer) / a.roundingUnit * a.roundingUnit
	if rounded >= adjustedMedian && a.dealerDiscount > 0 {
		rounded = adjustedMedian - a.roundingUnit
	}
	if rounded < 0 {
		rounded = 0
	}
	return rounded
}

// RoundingUnit returns the configured rounding unit
func (a *ConditionAdjuster) RoundingUnit() int {
	return a.roundingUnit
}
