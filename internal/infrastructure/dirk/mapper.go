package dirk

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
)

// searchHit is a phase one candidate
type searchHit struct {
	ProductID  int64  `json:"productId"`
	HeaderText string `json:"headerText"`
	Packaging  string `json:"packaging"`
}

// pricedProduct is a phase two price record; productInformation may be absent
type pricedProduct struct {
	ProductID          int64        `json:"productId"`
	NormalPrice        float64      `json:"normalPrice"` // euros
	OfferPrice         float64      `json:"offerPrice"`  // euros, 0 without an active offer
	ProductInformation *productInfo `json:"productInformation"`
}

type productInfo struct {
	HeaderText string `json:"headerText"`
	Packaging  string `json:"packaging"`
	Image      string `json:"image"`
}

// eurosToCents rounds half-up to whole cents
func eurosToCents(euros float64) int64 {
	if euros <= 0 {
		return 0
	}
	return decimal.NewFromFloat(euros).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MergeProducts joins price records to their candidates, keeping the search order.
// Candidates without a price record are dropped.
func MergeProducts(candidates []searchHit, priced []pricedProduct) []domain.RawProduct {
	byID := make(map[int64]pricedProduct, len(priced))
	for _, p := range priced {
		byID[p.ProductID] = p
	}

	result := make([]domain.RawProduct, 0, len(candidates))
	for _, hit := range candidates {
		p, ok := byID[hit.ProductID]
		if !ok {
			continue
		}

		price := p.NormalPrice
		if p.OfferPrice > 0 {
			price = p.OfferPrice
		}

		name, packaging, image := hit.HeaderText, hit.Packaging, ""
		if info := p.ProductInformation; info != nil {
			if info.HeaderText != "" {
				name = info.HeaderText
			}
			if info.Packaging != "" {
				packaging = info.Packaging
			}
			image = info.Image
		}
		if name == "" {
			name = fmt.Sprintf("Product %d", hit.ProductID)
		}

		result = append(result, domain.RawProduct{
			ID:           strconv.FormatInt(hit.ProductID, 10),
			Name:         name,
			Price:        eurosToCents(price),
			UnitQuantity: packaging,
			ImageURL:     domain.StringPtr(image),
			Retailer:     domain.RetailerDirk,
		})
	}
	return result
}
