package main

import (
	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/ah"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/dataset"
	"github.com/pricelens/backend/internal/infrastructure/dirk"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
	"github.com/pricelens/backend/internal/infrastructure/jumbo"
	"github.com/pricelens/backend/internal/infrastructure/picnic"
	"github.com/pricelens/backend/internal/usecase"
)

// dependencies are the long-lived objects shared by every search
type dependencies struct {
	prices   *usecase.PriceService
	sessions *picnic.Registry
}

func newClient(rc config.RetailerConfig, name string, log *zap.Logger) *httputil.Client {
	return httputil.NewClient(httputil.Options{
		RatePerSecond: rc.RatePerSecond,
		Burst:         rc.Burst,
		Logger:        log.Named(name),
	})
}

// buildDependencies wires every enabled connector into one price service
func buildDependencies(cfg *config.Config, log *zap.Logger) (*dependencies, error) {
	policy, err := usecase.ParseErrorPolicy(cfg.Aggregator.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	r := cfg.Retailers
	connectors := make([]domain.Connector, 0, len(domain.AllRetailers))

	// One dataset snapshot serves the fallback and every dataset-only retailer
	data := dataset.New(
		httputil.NewClient(httputil.Options{
			MaxBodyBytes: cfg.Dataset.MaxBytes(),
			Logger:       log.Named("dataset-http"),
		}),
		cfg.Dataset.URL,
		cfg.Dataset.TTL,
		cache.NewMemoryCache[dataset.Snapshot](),
		log,
	)

	if r.AH.Enabled {
		client := newClient(r.AH.RetailerConfig, "ah-http", log)
		tokens := ah.NewTokenSource(client, r.AH.BaseURL, r.AH.ClientID, r.AH.TokenMargin, cache.NewMemoryCache[string](), log)
		connectors = append(connectors, ah.NewConnector(client, tokens, r.AH.BaseURL, log))
	}

	if r.Jumbo.Enabled {
		live := jumbo.NewConnector(newClient(r.Jumbo, "jumbo-http", log), r.Jumbo.BaseURL, log)
		connectors = append(connectors, usecase.NewFallbackChain(live, data.Connector(domain.RetailerJumbo), cfg.Aggregator.LiveShare))
	}

	if r.Dirk.Enabled {
		connectors = append(connectors, dirk.NewConnector(newClient(r.Dirk.RetailerConfig, "dirk-http", log), r.Dirk.BaseURL, r.Dirk.StoreID, log))
	}

	sessions := picnic.NewRegistry()
	if r.Picnic.Enabled {
		connectors = append(connectors, picnic.NewConnector(sessions, log))
	}

	if r.Aldi.Enabled {
		connectors = append(connectors, data.Connector(domain.RetailerAldi))
	}
	if r.Plus.Enabled {
		connectors = append(connectors, data.Connector(domain.RetailerPlus))
	}

	prices := usecase.NewPriceService(connectors, usecase.PriceServiceConfig{
		Timeout:     cfg.Aggregator.Timeout,
		ErrorPolicy: policy,
	}, log)

	active := make([]string, 0, len(connectors))
	for _, retailer := range prices.Retailers() {
		active = append(active, string(retailer))
	}
	log.Info("price service ready",
		zap.Strings("retailers", active),
		zap.Duration("timeout", cfg.Aggregator.Timeout),
		zap.String("error_policy", string(policy)),
		zap.Float64("live_share", cfg.Aggregator.LiveShare))

	return &dependencies{prices: prices, sessions: sessions}, nil
}
