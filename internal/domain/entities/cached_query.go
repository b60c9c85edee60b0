package entities

import (
	"time"
)

// CachedQueryRecord is the durable-store row holding the statistics of a
// previously computed query. It is only written after passing the
// cache-write guard; a read past ExpiresAt is treated as a miss.
type CachedQueryRecord struct {
	QueryHash     string    `json:"query_hash" db:"query_hash"`
	FilterPayload string    `json:"filter_payload" db:"filter_payload"`
	Source        string    `json:"source" db:"source"`
	ListingCount  int       `json:"listing_count" db:"listing_count"`
	P25           int       `json:"p25" db:"p25"`
	P50           int       `json:"p50" db:"p50"`
	P75           int       `json:"p75" db:"p75"`
	MinPrice      int       `json:"min_price" db:"min_price"`
	MaxPrice      int       `json:"max_price" db:"max_price"`
	IQRRatio      float64   `json:"iqr_ratio" db:"iqr_ratio"`
	DealerCount   int       `json:"dealer_count" db:"dealer_count"`
	PrivateCount  int       `json:"private_count" db:"private_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the record is past its expiry at the given time
func (r *CachedQueryRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
