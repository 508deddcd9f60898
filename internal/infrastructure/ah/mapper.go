package ah

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// majorUnitThreshold separates prices sent in euros from prices sent in cents.
// The search API is inconsistent: most payloads carry euros as floats, some
// carry integer cents. Nothing on a grocery shelf costs 50 euros, and nothing
// costs less than 50 cents per package, so the magnitude decides.
const majorUnitThreshold = 50

// PriceToCents converts a search API price to minor units
func PriceToCents(value float64) int64 {
	if value <= 0 {
		return 0
	}
	d := decimal.NewFromFloat(value)
	if value < majorUnitThreshold {
		d = d.Mul(decimal.NewFromInt(100))
	}
	return d.Round(0).IntPart()
}

// searchResponse is the product search payload
type searchResponse struct {
	Products []searchProduct `json:"products"`
}

type searchProduct struct {
	WebshopID        int64          `json:"webshopId"`
	Title            string         `json:"title"`
	SalesUnitSize    string         `json:"salesUnitSize"`
	CurrentPrice     float64        `json:"currentPrice"`
	PriceBeforeBonus float64        `json:"priceBeforeBonus"`
	Images           []productImage `json:"images"`
}

type productImage struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// MapProducts converts at most limit search hits into RawProducts
func MapProducts(products []searchProduct, limit int) []domain.RawProduct {
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	result := make([]domain.RawProduct, 0, len(products))
	for _, p := range products {
		price := p.CurrentPrice
		if price <= 0 {
			price = p.PriceBeforeBonus
		}

		result = append(result, domain.RawProduct{
			ID:           strconv.FormatInt(p.WebshopID, 10),
			Name:         p.Title,
			Price:        PriceToCents(price),
			UnitQuantity: p.SalesUnitSize,
			ImageURL:     domain.StringPtr(pickImage(p.Images)),
			Retailer:     domain.RetailerAH,
		})
	}
	return result
}

// pickImage prefers the largest image no wider than 400px
func pickImage(images []productImage) string {
	best := ""
	bestWidth := -1
	for _, img := range images {
		if img.URL == "" || img.Width > 400 {
			continue
		}
		if img.Width > bestWidth {
			best, bestWidth = img.URL, img.Width
		}
	}
	if best == "" && len(images) > 0 {
		return images[0].URL
	}
	return best
}
