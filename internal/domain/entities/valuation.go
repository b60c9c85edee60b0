package entities

import (
	"time"
)

// ValuationRequest is the input to the valuation engine: the vehicle to
// value plus the user-reported condition.
type ValuationRequest struct {
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	MakeID    string    `json:"make_id,omitempty"`
	ModelID   string    `json:"model_id,omitempty"`
	Year      int       `json:"year"`
	Mileage   int       `json:"mileage"`
	Fuel      string    `json:"fuel,omitempty"`
	Gearbox   string    `json:"gearbox,omitempty"`
	Variant   string    `json:"variant,omitempty"`
	Condition Condition `json:"condition,omitempty"`
}

// SearchWindow documents which widened window actually produced the result
type SearchWindow struct {
	Strategy   string `json:"strategy"`
	YearMin    int    `json:"year_min"`
	YearMax    int    `json:"year_max"`
	MileageMin int    `json:"mileage_min"`
	MileageMax int    `json:"mileage_max"`
}

// ValuationResult is the successful outcome of a valuation request.
// Produced once per request; immutable.
type ValuationResult struct {
	PriceLow     int          `json:"price_low"`
	PriceHigh    int          `json:"price_high"`
	Median       int          `json:"median"`
	DealerPrice  int          `json:"dealer_price"`
	SampleSize   int          `json:"sample_size"`
	DealerCount  int          `json:"dealer_count"`
	PrivateCount int          `json:"private_count"`
	Confidence   Confidence   `json:"confidence"`
	Explanation  string       `json:"explanation"`
	Window       SearchWindow `json:"window"`
	Cached       bool         `json:"cached"`
	RequestID    string       `json:"request_id"`
	Timestamp    time.Time    `json:"timestamp"`
}

// ValuationError is the structured failure outcome, mutually exclusive
// with ValuationResult.
type ValuationError struct {
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *ValuationError) Error() string {
	return e.Message
}
