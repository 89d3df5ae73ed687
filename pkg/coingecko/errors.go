package coingecko

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for upstream failure classes, matched with errors.Is.
var (
	ErrBadRequest   = errors.New("coingecko: bad request")
	ErrUnauthorized = errors.New("coingecko: unauthorized")
	ErrNotFound     = errors.New("coingecko: not found")
	ErrRateLimited  = errors.New("coingecko: rate limited")
	ErrUpstream     = errors.New("coingecko: upstream unavailable")
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coingecko %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap maps the status code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrUpstream
	}
	return nil
}

// IsClientError reports failures that a retry cannot fix.
func IsClientError(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotFound)
}
