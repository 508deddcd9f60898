package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultLiveShare is the fraction of the remaining deadline given to the live connector
const DefaultLiveShare = 0.6

// FallbackChain tries a live connector first and falls back to a second
// connector when the live one fails or finds nothing.
type FallbackChain struct {
	Live      domain.Connector
	Fallback  domain.Connector
	LiveShare float64
}

// NewFallbackChain creates a chain; a share outside (0, 1) uses DefaultLiveShare
func NewFallbackChain(live, fallback domain.Connector, liveShare float64) *FallbackChain {
	if liveShare <= 0 || liveShare >= 1 {
		liveShare = DefaultLiveShare
	}
	return &FallbackChain{
		Live:      live,
		Fallback:  fallback,
		LiveShare: liveShare,
	}
}

// Retailer implements domain.Connector
func (c *FallbackChain) Retailer() domain.Retailer {
	return c.Live.Retailer()
}

// Search implements domain.Connector.
// A fallback failure counts as "nothing found"; when both stages come back
// empty the live error, if any, is returned.
func (c *FallbackChain) Search(ctx context.Context, req domain.SearchRequest) ([]domain.RawProduct, error) {
	liveCtx, cancel := c.liveContext(ctx)
	products, liveErr := c.Live.Search(liveCtx, req)
	cancel()

	if liveErr == nil && len(products) > 0 {
		return products, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fallback, fallbackErr := c.Fallback.Search(ctx, req)
	if fallbackErr == nil && len(fallback) > 0 {
		return fallback, nil
	}

	if liveErr != nil {
		// The live stage ran out of its own share, not the caller's deadline
		if errors.Is(liveErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: live stage: %v", domain.ErrUpstream, liveErr)
		}
		return nil, liveErr
	}
	return []domain.RawProduct{}, nil
}

// liveContext bounds the live stage to its share of the remaining deadline
func (c *FallbackChain) liveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	share := c.LiveShare
	if share <= 0 || share >= 1 {
		share = DefaultLiveShare
	}
	remaining := time.Until(deadline)
	return context.WithTimeout(ctx, time.Duration(float64(remaining)*share))
}
