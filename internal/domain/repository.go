package domain

import (
	"context"
)

// Connector translates a search into one retailer's wire protocol
type Connector interface {
	Retailer() Retailer
	Search(ctx context.Context, req SearchRequest) ([]RawProduct, error)
}

// ConnectorFunc adapts a function to the Connector interface
type ConnectorFunc struct {
	ID Retailer
	Fn func(ctx context.Context, req SearchRequest) ([]RawProduct, error)
}

// Retailer implements Connector
func (f ConnectorFunc) Retailer() Retailer { return f.ID }

// Search implements Connector
func (f ConnectorFunc) Search(ctx context.Context, req SearchRequest) ([]RawProduct, error) {
	return f.Fn(ctx, req)
}

// SessionItem is a search hit as returned by an authenticated retailer session
type SessionItem struct {
	ID           string
	Name         string
	Price        string // minor units, string encoded
	UnitQuantity string
	ImageID      string
}

// SessionClient is an authenticated, per-household retailer session owned
// outside this service
type SessionClient interface {
	Search(ctx context.Context, text string) ([]SessionItem, error)
}

// SessionProvider hands out the session client for a household
type SessionProvider interface {
	Session(ctx context.Context, householdID string) (SessionClient, error)
}
