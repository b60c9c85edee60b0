package entities

// SearchCriteria describes one marketplace search. It is immutable once
// constructed for a given strategy attempt.
type SearchCriteria struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	MakeID     string `json:"make_id,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
	YearMin    int    `json:"year_min"`
	YearMax    int    `json:"year_max"`
	MileageMin int    `json:"mileage_min"`
	MileageMax int    `json:"mileage_max"`
	Fuel       string `json:"fuel,omitempty"`
	Gearbox    string `json:"gearbox,omitempty"`
	Variant    string `json:"variant,omitempty"`
}

// Strategy is one named widening step of the search escalation ladder.
// Strategies are tried tightest-first; the engine stops at the first
// strategy yielding a usable sample.
type Strategy struct {
	Name        string
	YearSpan    int
	MileageSpan int
	DropGearbox bool
}

// DefaultStrategies is the built-in escalation ladder, tightest first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "exact", YearSpan: 1, MileageSpan: 20000},
		{Name: "wide", YearSpan: 2, MileageSpan: 40000},
		{Name: "loose", YearSpan: 3, MileageSpan: 60000, DropGearbox: true},
		{Name: "any", YearSpan: 5, MileageSpan: 100000, DropGearbox: true},
	}
}

// Apply derives the criteria for one strategy attempt from the
// user-supplied reference year and mileage.
func (s Strategy) Apply(base SearchCriteria, year, mileage int) SearchCriteria {
	criteria := base
	criteria.YearMin = year - s.YearSpan
	criteria.YearMax = year + s.YearSpan
	criteria.MileageMin = mileage - s.MileageSpan
	if criteria.MileageMin < 0 {
		criteria.MileageMin = 0
	}
	criteria.MileageMax = mileage + s.MileageSpan
	if s.DropGearbox {
		criteria.Gearbox = ""
	}
	return criteria
}
