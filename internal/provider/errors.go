// Package provider holds error types shared by the external API clients.
package provider

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when a provider keeps responding 429 after the
// bounded retry budget is spent. Callers treat the unit of work as
// unavailable for this run rather than blocking further.
var ErrRateLimited = errors.New("provider rate limited")

// StatusError is returned for a non-2xx provider response. It carries the
// HTTP status and response body so ledger rows and run logs can record what
// the provider actually said.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsUnavailable reports whether err represents a provider-side failure
// (non-2xx response or exhausted rate-limit retries).
func IsUnavailable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) || errors.Is(err, ErrRateLimited)
}
