package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// SortOrder selects how the merged product list is ordered
type SortOrder string

const (
	SortByPrice     SortOrder = "price"
	SortByUnitPrice SortOrder = "unit_price"
)

// ParseSortOrder validates a sort parameter; empty means price
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortByPrice, nil
	case SortByPrice, SortByUnitPrice:
		return o, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidRequest, s)
	}
}

// ViewOptions narrows and orders the merged product list
type ViewOptions struct {
	Sort     SortOrder
	Brand    string // exact brand, case-insensitive; empty keeps all
	Quantity string // quantity key such as "1_kg"; empty keeps all
}

// ViewProduct is a product enriched with its normalized attributes
type ViewProduct struct {
	domain.RawProduct
	RetailerLabel  string  `json:"retailerLabel"`
	UnitPrice      *string `json:"unitPrice"`
	UnitPriceCents *int64  `json:"unitPriceCents"`
	UnitPriceRef   string  `json:"unitPriceRef,omitempty"`
	Brand          string  `json:"brand"`
	QuantityKey    string  `json:"quantityKey,omitempty"`
	QuantityLabel  string  `json:"quantityLabel,omitempty"`

	comparable int64 // unit price per kg or liter, -1 when unknown
}

// Facet is one filter value with the number of products carrying it
type Facet struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Facets lists the brand and quantity values of the unfiltered product set
type Facets struct {
	Brands     []Facet `json:"brands"`
	Quantities []Facet `json:"quantities"`
}

// View is the merged, filtered and sorted product list of a search
type View struct {
	Products []ViewProduct `json:"products"`
	Facets   Facets        `json:"facets"`
}

// BuildView merges the products of every retailer into one list.
// Facets are counted before filtering so a client can switch filters.
func BuildView(results []domain.RetailerResult, opts ViewOptions) View {
	all := make([]ViewProduct, 0)
	for _, r := range results {
		for _, p := range r.Products {
			all = append(all, enrich(p))
		}
	}

	facets := buildFacets(all)

	filtered := make([]ViewProduct, 0, len(all))
	for _, p := range all {
		if opts.Brand != "" && !strings.EqualFold(p.Brand, strings.TrimSpace(opts.Brand)) {
			continue
		}
		if opts.Quantity != "" && p.QuantityKey != opts.Quantity {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, opts.Sort)

	return View{Products: filtered, Facets: facets}
}

func enrich(p domain.RawProduct) ViewProduct {
	v := ViewProduct{
		RawProduct:    p,
		RetailerLabel: p.Retailer.Label(),
		Brand:         ExtractBrand(p.Name),
		comparable:    -1,
	}

	if cents, ref, ok := UnitPriceCents(p.Price, p.UnitQuantity); ok {
		label, _ := UnitPrice(p.Price, p.UnitQuantity)
		v.UnitPrice = &label
		v.UnitPriceCents = &cents
		v.UnitPriceRef = ref
		v.comparable = cents
		if ref == RefPer100Gram {
			v.comparable = cents * 10
		}
	}

	if key, ok := QuantityKey(p.UnitQuantity); ok {
		v.QuantityKey = key
		v.QuantityLabel, _ = QuantityLabel(p.UnitQuantity)
	}
	return v
}

// sortProducts orders in place; products without a unit price sort last
// under SortByUnitPrice. Ties keep retailer order.
func sortProducts(products []ViewProduct, order SortOrder) {
	switch order {
	case SortByUnitPrice:
		sort.SliceStable(products, func(i, j int) bool {
			a, b := products[i].comparable, products[j].comparable
			switch {
			case a < 0:
				return false
			case b < 0:
				return true
			default:
				return a < b
			}
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	}
}

func buildFacets(products []ViewProduct) Facets {
	brands := make(map[string]*Facet)
	quantities := make(map[string]*Facet)

	for _, p := range products {
		if f, ok := brands[p.Brand]; ok {
			f.Count++
		} else {
			brands[p.Brand] = &Facet{Value: p.Brand, Label: p.Brand, Count: 1}
		}

		if p.QuantityKey == "" {
			continue
		}
		if f, ok := quantities[p.QuantityKey]; ok {
			f.Count++
		} else {
			quantities[p.QuantityKey] = &Facet{Value: p.QuantityKey, Label: p.QuantityLabel, Count: 1}
		}
	}

	return Facets{
		Brands:     sortedFacets(brands),
		Quantities: sortedFacets(quantities),
	}
}

// sortedFacets orders by count descending, then value
func sortedFacets(m map[string]*Facet) []Facet {
	facets := make([]Facet, 0, len(m))
	for _, f := range m {
		facets = append(facets, *f)
	}
	sort.Slice(facets, func(i, j int) bool {
		if facets[i].Count != facets[j].Count {
			return facets[i].Count > facets[j].Count
		}
		return facets[i].Value < facets[j].Value
	})
	return facets
}
