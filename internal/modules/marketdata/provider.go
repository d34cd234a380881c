package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Window is the date range requested from a provider.
type Window struct {
	From time.Time
	To   time.Time
}

// TrailingWindow returns the window of the last days days ending at now.
func TrailingWindow(now time.Time, days int) Window {
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Provider fetches daily history and fundamentals for one ticker.
// Failures must be *domain.ProviderError.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ticker string, window Window) (domain.MarketData, error)
}

// RetryingProvider bounds each attempt with a timeout and retries a failed
// attempt at most once. NotFound is never retried.
type RetryingProvider struct {
	inner   Provider
	timeout time.Duration
	backoff time.Duration
	log     zerolog.Logger
}

// NewRetryingProvider wraps inner.
func NewRetryingProvider(inner Provider, timeout, backoff time.Duration, log zerolog.Logger) *RetryingProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RetryingProvider{
		inner:   inner,
		timeout: timeout,
		backoff: backoff,
		log:     log.With().Str("component", "provider").Str("provider", inner.Name()).Logger(),
	}
}

// Name returns the wrapped provider's name.
func (p *RetryingProvider) Name() string {
	return p.inner.Name()
}

// Fetch calls the wrapped provider, at most twice.
func (p *RetryingProvider) Fetch(ctx context.Context, ticker string, window Window) (domain.MarketData, error) {
	var lastErr *domain.ProviderError

	for attempt := 1; attempt <= 2; attempt++ {
		data, err := p.attempt(ctx, ticker, window)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !err.Retryable() || attempt == 2 || ctx.Err() != nil {
			break
		}

		p.log.Warn().
			Err(err).
			Str("ticker", ticker).
			Str("reason", string(err.Reason)).
			Msg("Provider call failed, retrying once")

		select {
		case <-ctx.Done():
			return domain.MarketData{}, domain.NewProviderError(ticker, ReasonFromContext(ctx.Err()), ctx.Err())
		case <-time.After(p.backoff):
		}
	}

	return domain.MarketData{}, lastErr
}

func (p *RetryingProvider) attempt(ctx context.Context, ticker string, window Window) (domain.MarketData, *domain.ProviderError) {
	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.inner.Fetch(actx, ticker, window)
	if err == nil {
		if len(data.Prices) == 0 {
			return domain.MarketData{}, domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("empty price history"))
		}
		return data, nil
	}
	return domain.MarketData{}, AsProviderError(ticker, err)
}

// AsProviderError classifies any error as a ProviderError.
func AsProviderError(ticker string, err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.NewProviderError(ticker, domain.ReasonTimeout, err)
	}
	return domain.NewProviderError(ticker, domain.ReasonNetworkError, err)
}

// ReasonFromContext maps a context error to a provider reason.
func ReasonFromContext(err error) domain.ProviderReason {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ReasonTimeout
	}
	return domain.ReasonNetworkError
}

// ProviderFunc adapts a function to Provider, mostly for tests and the CLI.
type ProviderFunc struct {
	ProviderName string
	Fn           func(ctx context.Context, ticker string, window Window) (domain.MarketData, error)
}

// Name implements Provider.
func (f ProviderFunc) Name() string {
	if f.ProviderName == "" {
		return "func"
	}
	return f.ProviderName
}

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, ticker string, window Window) (domain.MarketData, error) {
	if f.Fn == nil {
		return domain.MarketData{}, domain.NewProviderError(ticker, domain.ReasonNetworkError, fmt.Errorf("provider not configured"))
	}
	return f.Fn(ctx, ticker, window)
}
