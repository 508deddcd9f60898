package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is one of the four package units the normalizer understands
type Unit string

const (
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitMilliliter Unit = "ml"
	UnitLiter      Unit = "l"
)

// ParsedQuantity is a package size with a recognized unit
type ParsedQuantity struct {
	Amount float64
	Unit   Unit
}

// Compiled regex patterns for quantity parsing
var (
	// Matches "500 g", "500g", "1,5 kg", "1.5 L", "750ml", "6 x 330 ml".
	// Unit alternatives are ordered longest first so "gram" wins over "g".
	quantityPattern = regexp.MustCompile(
		`(?i)(?:(\d+)\s*[x×]\s*)?(\d+(?:[.,]\d+)?)\s*(kilogram|kilo|kg|gram|gr|g|milliliter|ml|liter|litre|l)\b`,
	)

	// Same grammar anchored to the end of a search query, e.g. "kwark 1kg"
	trailingQuantityPattern = regexp.MustCompile(
		`(?i)(?:^|\s)(\d+(?:[.,]\d+)?\s*(?:kilogram|kilo|kg|gram|gr|g|milliliter|ml|liter|litre|l))\s*$`,
	)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

var unitAliases = map[string]Unit{
	"g":          UnitGram,
	"gr":         UnitGram,
	"gram":       UnitGram,
	"kg":         UnitKilogram,
	"kilo":       UnitKilogram,
	"kilogram":   UnitKilogram,
	"ml":         UnitMilliliter,
	"milliliter": UnitMilliliter,
	"l":          UnitLiter,
	"liter":      UnitLiter,
	"litre":      UnitLiter,
}

// ParseQuantity extracts a package size from free text.
// Returns false for piece counts ("1 stuk"), bare numbers, empty input and
// anything without one of the recognized weight or volume units.
func ParseQuantity(text string) (ParsedQuantity, bool) {
	m := quantityPattern.FindStringSubmatch(text)
	if m == nil {
		return ParsedQuantity{}, false
	}

	amount, err := parseDecimal(m[2])
	if err != nil || amount <= 0 {
		return ParsedQuantity{}, false
	}

	if m[1] != "" {
		count, err := strconv.Atoi(m[1])
		if err != nil || count <= 0 {
			return ParsedQuantity{}, false
		}
		amount *= float64(count)
	}

	unit, ok := unitAliases[strings.ToLower(m[3])]
	if !ok {
		return ParsedQuantity{}, false
	}

	return ParsedQuantity{Amount: amount, Unit: unit}, true
}

// parseDecimal accepts both "1,5" and "1.5"
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// Reference quantities a unit price is expressed against
const (
	RefPer100Gram = "100g"
	RefPerKilo    = "kg"
	RefPerLiter   = "liter"
)

// UnitPriceCents normalizes a package price to a reference quantity:
// per 100 g below 1000 g, per kg from 1000 g and for kg, per liter for ml and l.
// The scaled price is rounded half-up to whole cents.
func UnitPriceCents(priceCents int64, quantityText string) (int64, string, bool) {
	if priceCents <= 0 {
		return 0, "", false
	}

	q, ok := ParseQuantity(quantityText)
	if !ok {
		return 0, "", false
	}

	price := decimal.NewFromInt(priceCents)
	amount := decimal.NewFromFloat(q.Amount)
	thousand := decimal.NewFromInt(1000)

	var scaled decimal.Decimal
	var ref string
	switch q.Unit {
	case UnitGram:
		if q.Amount < 1000 {
			scaled = price.Mul(decimal.NewFromInt(100)).Div(amount)
			ref = RefPer100Gram
		} else {
			scaled = price.Div(amount.Div(thousand))
			ref = RefPerKilo
		}
	case UnitKilogram:
		scaled = price.Div(amount)
		ref = RefPerKilo
	case UnitMilliliter:
		scaled = price.Div(amount.Div(thousand))
		ref = RefPerLiter
	case UnitLiter:
		scaled = price.Div(amount)
		ref = RefPerLiter
	default:
		return 0, "", false
	}

	// decimal rounds half away from zero, which is half-up for positive prices
	return scaled.Round(0).IntPart(), ref, true
}

// UnitPrice formats the unit price, e.g. "€ 0,28 / 100g"
func UnitPrice(priceCents int64, quantityText string) (string, bool) {
	cents, ref, ok := UnitPriceCents(priceCents, quantityText)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s / %s", FormatEuro(cents), ref), true
}

// FormatEuro renders minor units as "€ X,XX"
func FormatEuro(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("€ %s%d,%02d", sign, cents/100, cents%100)
}

// foldQuantity maps exactly 1000 g to 1 kg and 1000 ml to 1 l.
// Every other amount keeps its unit: 2000 g stays 2000 g.
func foldQuantity(q ParsedQuantity) ParsedQuantity {
	if q.Amount != 1000 {
		return q
	}
	switch q.Unit {
	case UnitGram:
		return ParsedQuantity{Amount: 1, Unit: UnitKilogram}
	case UnitMilliliter:
		return ParsedQuantity{Amount: 1, Unit: UnitLiter}
	}
	return q
}

// QuantityKey returns a bucketing key such as "500_ml" or "1_kg".
// Only meant for exact-match filtering; "1000 ml" and "1 L" share a key.
func QuantityKey(text string) (string, bool) {
	q, ok := ParseQuantity(text)
	if !ok {
		return "", false
	}
	q = foldQuantity(q)
	return strconv.FormatFloat(q.Amount, 'f', -1, 64) + "_" + string(q.Unit), true
}

var unitLabels = map[Unit]string{
	UnitGram:       "g",
	UnitKilogram:   "kg",
	UnitMilliliter: "ml",
	UnitLiter:      "L",
}

// QuantityLabel returns a display label such as "1 L", "500 ml" or "1,5 kg"
func QuantityLabel(text string) (string, bool) {
	q, ok := ParseQuantity(text)
	if !ok {
		return "", false
	}
	q = foldQuantity(q)
	amount := strings.ReplaceAll(strconv.FormatFloat(q.Amount, 'f', -1, 64), ".", ",")
	return amount + " " + unitLabels[q.Unit], true
}

// QueryQuantity is a search query split into its text and an optional size filter
type QueryQuantity struct {
	CleanQuery string `json:"cleanQuery"`
	QtyFilter  string `json:"qtyFilter,omitempty"`
	HasFilter  bool   `json:"-"`
}

// ExtractQuantityFromQuery strips a trailing package size from a query,
// "kwark 1kg" becoming "kwark" with filter "1_kg". A query that is only a
// size is left untouched so there is still something to search for.
func ExtractQuantityFromQuery(query string) QueryQuantity {
	trimmed := strings.TrimSpace(query)
	result := QueryQuantity{CleanQuery: trimmed}

	loc := trailingQuantityPattern.FindStringSubmatchIndex(trimmed)
	if loc == nil {
		return result
	}

	key, ok := QuantityKey(trimmed[loc[2]:loc[3]])
	if !ok {
		return result
	}

	clean := strings.TrimSpace(multiSpacePattern.ReplaceAllString(trimmed[:loc[0]], " "))
	if clean == "" {
		return result
	}

	return QueryQuantity{CleanQuery: clean, QtyFilter: key, HasFilter: true}
}
