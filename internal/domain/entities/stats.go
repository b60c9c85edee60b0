package entities

// Confidence is the discrete reliability label of a valuation
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RobustStats holds the robust price statistics computed over a cleaned
// listing sample. It is derived per query and never partially updated.
type RobustStats struct {
	RawCount     int        `json:"raw_count"`
	DedupedCount int        `json:"deduped_count"`
	CleanCount   int        `json:"clean_count"`
	DealerCount  int        `json:"dealer_count"`
	PrivateCount int        `json:"private_count"`
	P25          int        `json:"p25"`
	P50          int        `json:"p50"`
	P75          int        `json:"p75"`
	Min          int        `json:"min"`
	Max          int        `json:"max"`
	IQR          int        `json:"iqr"`
	IQRRatio     float64    `json:"iqr_ratio"`
	Confidence   Confidence `json:"confidence"`
}
