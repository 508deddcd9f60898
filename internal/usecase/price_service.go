package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultConnectorTimeout bounds every connector of a search call
const DefaultConnectorTimeout = 8 * time.Second

// ErrorPolicy decides how connector failures reach the caller
type ErrorPolicy string

const (
	// ErrorPolicySurface reports every failure as a per-retailer error
	ErrorPolicySurface ErrorPolicy = "surface"

	// ErrorPolicyLegacy hides token, upstream and missing-session failures
	// behind an empty product list. Timeouts and unexpected errors still surface.
	ErrorPolicyLegacy ErrorPolicy = "legacy"
)

// ParseErrorPolicy validates a configured policy; empty means surface
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ErrorPolicySurface, nil
	case ErrorPolicySurface, ErrorPolicyLegacy:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown error policy %q", domain.ErrInvalidRequest, s)
	}
}

// PriceServiceConfig holds configuration for the price service
type PriceServiceConfig struct {
	Timeout     time.Duration
	ErrorPolicy ErrorPolicy
}

// PriceService fans a query out to every active connector and collects
// exactly one result per connector
type PriceService struct {
	connectors map[domain.Retailer]domain.Connector
	timeout    time.Duration
	policy     ErrorPolicy
	log        *zap.Logger
}

// NewPriceService creates a price service over the given connectors.
// Connectors for unknown retailers are ignored; a later connector replaces an
// earlier one for the same retailer.
func NewPriceService(connectors []domain.Connector, config PriceServiceConfig, log *zap.Logger) *PriceService {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("prices")

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectorTimeout
	}

	policy := config.ErrorPolicy
	if policy == "" {
		policy = ErrorPolicySurface
	}

	table := make(map[domain.Retailer]domain.Connector, len(connectors))
	for _, c := range connectors {
		if c == nil {
			continue
		}
		if !c.Retailer().Valid() {
			log.Warn("ignoring connector for unknown retailer", zap.String("retailer", string(c.Retailer())))
			continue
		}
		table[c.Retailer()] = c
	}

	return &PriceService{
		connectors: table,
		timeout:    timeout,
		policy:     policy,
		log:        log,
	}
}

// Retailers returns the active retailers in result order
func (s *PriceService) Retailers() []domain.Retailer {
	active := make([]domain.Retailer, 0, len(s.connectors))
	for _, r := range domain.AllRetailers {
		if _, ok := s.connectors[r]; ok {
			active = append(active, r)
		}
	}
	return active
}

// SearchAll queries every active connector concurrently. Each connector gets
// its own deadline; a failure, timeout or panic in one of them only affects
// its own entry. Results come back in retailer order.
func (s *PriceService) SearchAll(ctx context.Context, query, householdID string) ([]domain.RetailerResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidRequest)
	}

	req := domain.SearchRequest{Query: query, HouseholdID: householdID}
	active := s.Retailers()
	results := make([]domain.RetailerResult, len(active))

	var wg sync.WaitGroup
	for i, retailer := range active {
		wg.Add(1)
		go func(i int, c domain.Connector) {
			defer wg.Done()
			results[i] = s.searchOne(ctx, c, req)
		}(i, s.connectors[retailer])
	}
	wg.Wait()

	return results, nil
}

// outcome is what a connector goroutine hands back
type outcome struct {
	products []domain.RawProduct
	err      error
}

func (s *PriceService) searchOne(ctx context.Context, c domain.Connector, req domain.SearchRequest) domain.RetailerResult {
	retailer := c.Retailer()
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Buffered so a connector that settles after the deadline can still exit
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("connector panicked: %v", r)}
			}
		}()
		products, err := c.Search(ctx, req)
		done <- outcome{products: products, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if errors.Is(out.err, context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w after %s", domain.ErrTimeout, s.timeout)
	}

	result := s.settle(retailer, out)

	fields := []zap.Field{
		zap.String("retailer", string(retailer)),
		zap.Duration("duration", time.Since(started)),
		zap.Int("products", len(result.Products)),
	}
	if out.err != nil {
		fields = append(fields, zap.Error(out.err), zap.Bool("surfaced", result.Failed()))
		s.log.Warn("connector failed", fields...)
	} else {
		s.log.Debug("connector settled", fields...)
	}

	return result
}

// settle turns an outcome into the retailer's entry according to the policy
func (s *PriceService) settle(retailer domain.Retailer, out outcome) domain.RetailerResult {
	result := domain.RetailerResult{
		Retailer: retailer,
		Label:    retailer.Label(),
		Products: []domain.RawProduct{},
	}

	if out.err == nil {
		if out.products != nil {
			result.Products = out.products
		}
		return result
	}

	if s.policy == ErrorPolicyLegacy && legacySilenced(out.err) {
		return result
	}

	msg := out.err.Error()
	result.Error = &msg
	return result
}

func legacySilenced(err error) bool {
	if errors.Is(err, domain.ErrTimeout) {
		return false
	}
	return errors.Is(err, domain.ErrAuth) ||
		errors.Is(err, domain.ErrUpstream) ||
		errors.Is(err, domain.ErrNoSession)
}
