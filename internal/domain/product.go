package domain

// RawProduct is a single search hit translated into the shared shape
type RawProduct struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`        // minor currency units (cents)
	UnitQuantity string   `json:"unitQuantity"` // free text, e.g. "500 g"
	ImageURL     *string  `json:"imageUrl"`
	Retailer     Retailer `json:"retailer"`
}

// RetailerResult is the outcome of one connector for one search call.
// Products is empty whenever Error is set.
type RetailerResult struct {
	Retailer Retailer     `json:"retailer"`
	Label    string       `json:"label"`
	Products []RawProduct `json:"products"`
	Error    *string      `json:"error"`
}

// Failed reports whether the connector failed or timed out
func (r RetailerResult) Failed() bool {
	return r.Error != nil
}

// SearchRequest is what every connector receives
type SearchRequest struct {
	Query       string `json:"query"`
	HouseholdID string `json:"householdId,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
