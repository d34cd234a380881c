package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a ticker is absent (ledger or provider).
	ErrNotFound = errors.New("not found")
	// ErrDataUnavailable means no usable price history exists for a ticker.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrMalformedState means persisted ledger or cache content failed to parse.
	ErrMalformedState = errors.New("malformed persisted state")
	// ErrInfeasible means the optimizer lacks tickers or overlapping dates.
	ErrInfeasible = errors.New("optimization infeasible")
	// ErrInvalidInput flags caller mistakes such as negative lots.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFeatureUnavailable flags an optional capability that is not configured.
	ErrFeatureUnavailable = errors.New("feature unavailable")
)

// ProviderReason classifies market data provider failures.
type ProviderReason string

const (
	ReasonNotFound     ProviderReason = "not_found"
	ReasonRateLimited  ProviderReason = "rate_limited"
	ReasonNetworkError ProviderReason = "network_error"
	ReasonTimeout      ProviderReason = "timeout"
)

// ProviderError is any fetch failure. Every reason triggers the same cache
// fallback; the reason is kept for diagnostics.
type ProviderError struct {
	Ticker string
	Reason ProviderReason
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error for %s: %s", e.Ticker, e.Reason)
	}
	return fmt.Sprintf("provider error for %s: %s: %v", e.Ticker, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a second attempt could plausibly succeed.
func (e *ProviderError) Retryable() bool {
	return e.Reason != ReasonNotFound
}

// NewProviderError builds a ProviderError.
func NewProviderError(ticker string, reason ProviderReason, err error) *ProviderError {
	return &ProviderError{Ticker: ticker, Reason: reason, Err: err}
}

// ProviderReasonOf extracts the reason from err, or "" when err is not a
// ProviderError.
func ProviderReasonOf(err error) ProviderReason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}
