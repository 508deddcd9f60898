// Package httputil provides the outbound HTTP plumbing shared by all retailer connectors.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// 429 and 5xx responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 250 * time.Millisecond

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	defaultMaxBody    = 4 << 20
	defaultUserAgent  = "PriceLens/1.0"
)

// StatusError is returned for a non-2xx response; it wraps domain.ErrUpstream
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s %s returned status %d", domain.ErrUpstream, e.Method, e.URL, e.Code)
}

// Unwrap lets errors.Is match domain.ErrUpstream
func (e *StatusError) Unwrap() error {
	return domain.ErrUpstream
}

// HasStatus reports whether err carries the given HTTP status code
func HasStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == code
}

// Options configures a Client
type Options struct {
	// RatePerSecond of 0 disables rate limiting
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	MaxBodyBytes  int64
	UserAgent     string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client executes rate limited JSON requests against one retailer
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxRetries  int
	maxBody     int64
	userAgent   string
	log         *zap.Logger
}

// NewClient creates a client with defaults for any zero option
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		httpClient:  httpClient,
		rateLimiter: limiter,
		maxRetries:  maxRetries,
		maxBody:     maxBody,
		userAgent:   userAgent,
		log:         log,
	}
}

// GetJSON performs a GET and decodes a 2xx JSON body into out
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	return c.doJSON(ctx, http.MethodGet, url, header, nil, out)
}

// PostJSON sends body as JSON and decodes a 2xx JSON body into out
func (c *Client) PostJSON(ctx context.Context, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, header, payload, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, header http.Header, payload []byte, out any) error {
	body, err := c.Do(ctx, method, url, header, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}

// Do executes a request and returns the body of a 2xx response.
// 429 and 5xx responses are retried with exponential backoff; any other
// non-2xx status fails immediately with domain.ErrUpstream.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, status, err := c.once(ctx, method, url, header, payload)
		if err != nil {
			// Transport failures are not retried; the caller's deadline is usually short
			return nil, err
		}

		if status >= 200 && status < 300 {
			return body, nil
		}

		lastErr = &StatusError{Method: method, URL: url, Code: status}
		if status != http.StatusTooManyRequests && status < 500 {
			return nil, lastErr
		}

		c.log.Warn("retryable upstream status",
			zap.String("url", url),
			zap.Int("status", status),
			zap.Int("attempt", attempt+1))
	}

	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, url string, header http.Header, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response: %v", domain.ErrUpstream, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, 0, fmt.Errorf("%w: response exceeds %d bytes", domain.ErrUpstream, c.maxBody)
	}

	return body, resp.StatusCode, nil
}

// exponentialBackoff returns RetryBaseDelay doubled per attempt after the first
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
}
