package jumbo

import (
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// searchResponse is the search payload of the mobile API
type searchResponse struct {
	Products struct {
		Data  []product `json:"data"`
		Total int       `json:"total"`
	} `json:"products"`
}

type product struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Quantity  string     `json:"quantity"`
	Content   *content   `json:"content"`
	Prices    prices     `json:"prices"`
	ImageInfo *imageInfo `json:"imageInfo"`
}

// content is the structured package size, e.g. {"amount": 500, "unit": "g"}
type content struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

type prices struct {
	Price      money  `json:"price"`
	PromoPrice *money `json:"promotionalPrice"`
}

type money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"` // cents
}

type imageInfo struct {
	PrimaryView []struct {
		URL    string `json:"url"`
		Height int    `json:"height"`
	} `json:"primaryView"`
}

// MapProducts converts at most limit search hits into RawProducts
func MapProducts(products []product, limit int) []domain.RawProduct {
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	result := make([]domain.RawProduct, 0, len(products))
	for _, p := range products {
		price := p.Prices.Price.Amount
		if p.Prices.PromoPrice != nil && p.Prices.PromoPrice.Amount > 0 {
			price = p.Prices.PromoPrice.Amount
		}
		if price < 0 {
			price = 0
		}

		result = append(result, domain.RawProduct{
			ID:           p.ID,
			Name:         p.Title,
			Price:        price,
			UnitQuantity: unitQuantity(p),
			ImageURL:     domain.StringPtr(imageURL(p.ImageInfo)),
			Retailer:     domain.RetailerJumbo,
		})
	}
	return result
}

// unitQuantity prefers the structured amount and unit over the free-text field
func unitQuantity(p product) string {
	if p.Content != nil && p.Content.Amount > 0 && p.Content.Unit != "" {
		amount := strconv.FormatFloat(p.Content.Amount, 'f', -1, 64)
		return amount + " " + strings.ToLower(p.Content.Unit)
	}
	return strings.TrimSpace(p.Quantity)
}

func imageURL(info *imageInfo) string {
	if info == nil || len(info.PrimaryView) == 0 {
		return ""
	}
	return info.PrimaryView[0].URL
}
