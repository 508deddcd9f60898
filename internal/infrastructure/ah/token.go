package ah

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/httputil"
)

const (
	tokenPath          = "/mobile-auth/v1/auth/token/anonymous"
	tokenCacheKey      = "ah:anonymous"
	defaultTokenMargin = time.Minute
	tokenFetchTimeout  = 5 * time.Second
)

// tokenRequest is the body of the anonymous token request
type tokenRequest struct {
	ClientID string `json:"clientId"`
}

// tokenResponse is the anonymous token issued by the retailer
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// TokenSource obtains and caches the anonymous bearer token.
// One TokenSource is shared by every search in the process; concurrent
// callers that find no valid token share a single issuance request.
type TokenSource struct {
	http     *httputil.Client
	tokenURL string
	clientID string
	margin   time.Duration
	cache    *cache.MemoryCache[string]
	group    singleflight.Group
	log      *zap.Logger
}

// NewTokenSource creates a token source. A margin of 0 uses one minute.
func NewTokenSource(client *httputil.Client, baseURL, clientID string, margin time.Duration, store *cache.MemoryCache[string], log *zap.Logger) *TokenSource {
	if margin <= 0 {
		margin = defaultTokenMargin
	}
	if store == nil {
		store = cache.NewMemoryCache[string]()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TokenSource{
		http:     client,
		tokenURL: baseURL + tokenPath,
		clientID: clientID,
		margin:   margin,
		cache:    store,
		log:      log.Named("ah-token"),
	}
}

// Token returns a cached token while it is valid, fetching a new one otherwise
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	if token, err := s.cache.Get(ctx, tokenCacheKey); err == nil {
		return token, nil
	}

	ch := s.group.DoChan(tokenCacheKey, func() (interface{}, error) {
		// The issuance outlives any single caller's cancellation
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()

		if token, err := s.cache.Get(fetchCtx, tokenCacheKey); err == nil {
			return token, nil
		}
		return s.fetch(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, e.g. after the retailer rejected it
func (s *TokenSource) Invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, tokenCacheKey)
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := s.http.PostJSON(ctx, s.tokenURL, nil, tokenRequest{ClientID: s.clientID}, &resp); err != nil {
		s.log.Warn("token request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrAuth)
	}

	ttl := time.Duration(resp.ExpiresIn)*time.Second - s.margin
	if ttl > 0 {
		_ = s.cache.Set(ctx, tokenCacheKey, resp.AccessToken, ttl)
	}

	s.log.Debug("issued anonymous token", zap.Duration("ttl", ttl))
	return resp.AccessToken, nil
}
