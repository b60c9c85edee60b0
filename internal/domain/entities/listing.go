package entities

// SellerKind distinguishes dealer listings from private sales
type SellerKind string

const (
	SellerDealer  SellerKind = "dealer"
	SellerPrivate SellerKind = "private"
)

// Listing represents one scraped marketplace offer.
// Listings are created per request by a listing source, never mutated,
// and discarded after the statistics pass.
type Listing struct {
	ID         string     `json:"id"`
	Price      int        `json:"price"`
	Mileage    int        `json:"mileage"`
	Year       int        `json:"year"`
	FuelCode   string     `json:"fuel_code,omitempty"`
	SellerKind SellerKind `json:"seller_kind,omitempty"`
	Source     string     `json:"source"`
}

// Condition describes the vehicle condition provided by the user
type Condition string

const (
	ConditionPoor      Condition = "poor"
	ConditionNormal    Condition = "normal"
	ConditionExcellent Condition = "excellent"
)

// Valid reports whether the condition is one of the known values.
// The empty string is accepted and treated as normal.
func (c Condition) Valid() bool {
	switch c {
	case "", ConditionPoor, ConditionNormal, ConditionExcellent:
		return true
	}
	return false
}
