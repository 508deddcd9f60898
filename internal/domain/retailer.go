package domain

import "fmt"

// Retailer identifies a supported supermarket chain
type Retailer string

const (
	RetailerAH     Retailer = "ah"
	RetailerJumbo  Retailer = "jumbo"
	RetailerDirk   Retailer = "dirk"
	RetailerPicnic Retailer = "picnic"
	RetailerAldi   Retailer = "aldi"
	RetailerPlus   Retailer = "plus"
)

// AllRetailers lists every supported retailer in result order
var AllRetailers = []Retailer{
	RetailerAH,
	RetailerJumbo,
	RetailerDirk,
	RetailerPicnic,
	RetailerAldi,
	RetailerPlus,
}

var retailerLabels = map[Retailer]string{
	RetailerAH:     "Albert Heijn",
	RetailerJumbo:  "Jumbo",
	RetailerDirk:   "Dirk",
	RetailerPicnic: "Picnic",
	RetailerAldi:   "Aldi",
	RetailerPlus:   "Plus",
}

// Label returns the display name of the retailer
func (r Retailer) Label() string {
	if label, ok := retailerLabels[r]; ok {
		return label
	}
	return string(r)
}

// Valid reports whether r is one of the supported retailers
func (r Retailer) Valid() bool {
	_, ok := retailerLabels[r]
	return ok
}

// ParseRetailer converts an identifier into a Retailer
func ParseRetailer(s string) (Retailer, error) {
	r := Retailer(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown retailer %q", ErrInvalidRequest, s)
	}
	return r, nil
}
