// Package dataset serves prices from a community-maintained static document.
// It backs retailers without a live search API and acts as the fallback for
// live connectors that come back empty.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
)

const (
	// DefaultTTL is how long a snapshot is served before it is refetched
	DefaultTTL = 6 * time.Hour

	// MaxResults caps the matches returned per search
	MaxResults = 20

	snapshotKey    = "dataset:snapshot"
	refreshTimeout = 30 * time.Second
)

// Record is one product line of the document; price is in major units
type Record struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Unit  string  `json:"unit"`
}

// Snapshot is the decoded document keyed by retailer id
type Snapshot map[string][]Record

// Dataset owns the cached snapshot. Refreshes are deduplicated across callers
// and a failed refresh keeps serving the previous snapshot.
type Dataset struct {
	client *httputil.Client
	url    string
	ttl    time.Duration
	store  *cache.MemoryCache[Snapshot]
	group  singleflight.Group
	log    *zap.Logger
}

// New creates a dataset reading from url. A nil store gets a private cache.
func New(client *httputil.Client, url string, ttl time.Duration, store *cache.MemoryCache[Snapshot], log *zap.Logger) *Dataset {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if store == nil {
		store = cache.NewMemoryCache[Snapshot]()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dataset{
		client: client,
		url:    url,
		ttl:    ttl,
		store:  store,
		log:    log.Named("dataset"),
	}
}

// Snapshot returns the current document, fetching it when absent or expired
func (d *Dataset) Snapshot(ctx context.Context) (Snapshot, error) {
	if snap, err := d.store.Get(ctx, snapshotKey); err == nil {
		return snap, nil
	}

	ch := d.group.DoChan(snapshotKey, func() (any, error) {
		// another flight may have landed since the lookup above
		if snap, err := d.store.Get(ctx, snapshotKey); err == nil {
			return snap, nil
		}
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return d.refresh(refreshCtx)
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(Snapshot), nil
		}
		return d.stale(ctx, res.Err)
	case <-ctx.Done():
		if snap, _, err := d.store.GetStale(ctx, snapshotKey); err == nil {
			return snap, nil
		}
		return nil, ctx.Err()
	}
}

func (d *Dataset) refresh(ctx context.Context) (Snapshot, error) {
	started := time.Now()

	body, err := d.client.Do(ctx, http.MethodGet, d.url, nil, nil)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: failed to decode dataset", domain.ErrUpstream)
	}
	if snap == nil {
		snap = Snapshot{}
	}

	if err := d.store.Set(ctx, snapshotKey, snap, d.ttl); err != nil {
		return nil, err
	}

	records := 0
	for _, block := range snap {
		records += len(block)
	}
	d.log.Info("dataset refreshed",
		zap.Int("retailers", len(snap)),
		zap.Int("records", records),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(started)),
		zap.String("next_refresh_in", durafmt.Parse(d.ttl).LimitFirstN(2).String()))
	return snap, nil
}

// stale falls back to the last snapshot after a failed refresh
func (d *Dataset) stale(ctx context.Context, cause error) (Snapshot, error) {
	snap, storedAt, err := d.store.GetStale(ctx, snapshotKey)
	if errors.Is(err, domain.ErrCacheMiss) {
		d.log.Error("dataset refresh failed with no snapshot to serve", zap.Error(cause))
		return nil, fmt.Errorf("%w: %w", domain.ErrDatasetUnavailable, cause)
	}
	if err != nil {
		return nil, err
	}

	d.log.Warn("dataset refresh failed, serving stale snapshot",
		zap.Error(cause),
		zap.String("age", durafmt.Parse(time.Since(storedAt)).LimitFirstN(2).String()))
	return snap, nil
}

// Search returns up to MaxResults records of the retailer whose name contains
// every query term, case-insensitively.
func (d *Dataset) Search(ctx context.Context, retailer domain.Retailer, query string) ([]domain.RawProduct, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Match(snap[string(retailer)], retailer, query, MaxResults), nil
}

// Match filters records on all query terms and converts the first limit hits.
// Ids are synthesized from the retailer and the position among the hits.
func Match(records []Record, retailer domain.Retailer, query string, limit int) []domain.RawProduct {
	terms := strings.Fields(strings.ToLower(query))

	result := make([]domain.RawProduct, 0)
	for _, rec := range records {
		if limit > 0 && len(result) >= limit {
			break
		}
		if !containsAll(strings.ToLower(rec.Name), terms) {
			continue
		}
		result = append(result, domain.RawProduct{
			ID:           fmt.Sprintf("%s-%d", retailer, len(result)),
			Name:         rec.Name,
			Price:        toCents(rec.Price),
			UnitQuantity: rec.Unit,
			Retailer:     retailer,
		})
	}
	return result
}

func containsAll(name string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(name, term) {
			return false
		}
	}
	return true
}

func toCents(price float64) int64 {
	if price <= 0 {
		return 0
	}
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}
