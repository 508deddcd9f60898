package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrAuth is returned when a retailer access token cannot be obtained
	ErrAuth = errors.New("retailer token issuance failed")

	// ErrUpstream is returned when a retailer endpoint answers with a non-2xx status
	// or a payload that cannot be decoded
	ErrUpstream = errors.New("retailer request failed")

	// ErrTimeout is returned when a connector does not settle before its deadline
	ErrTimeout = errors.New("retailer search timed out")

	// ErrNoSession is returned when no authenticated session exists for a household
	ErrNoSession = errors.New("no retailer session configured for household")

	// ErrDatasetUnavailable is returned when the fallback dataset was never loaded
	ErrDatasetUnavailable = errors.New("fallback dataset unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
