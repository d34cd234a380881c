package valuation

import (
	"context"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// MarketData is the subset of marketdata.Cache used here.
type MarketData interface {
	Get(ctx context.Context, ticker string) marketdata.Result
}

// Service values tickers from cached fundamentals.
type Service struct {
	data MarketData
	log  zerolog.Logger
}

// NewService creates a valuation service
func NewService(data MarketData, log zerolog.Logger) *Service {
	return &Service{
		data: data,
		log:  log.With().Str("component", "valuation").Logger(),
	}
}

// Value assesses ticker. forecast is an optional externally produced price
// forecast; nil leaves the recommendation FeatureUnavailable.
func (s *Service) Value(ctx context.Context, ticker string, forecast *float64) (Valuation, domain.Warnings, error) {
	res := s.data.Get(ctx, ticker)
	if res.Empty() {
		return Valuation{Ticker: res.Ticker}, res.Warnings, res.Err()
	}

	v := Assess(res.Ticker, res.Entry.Data.Fundamentals, res.Entry.Data.Prices.LastClose(), forecast)
	s.log.Debug().
		Str("ticker", res.Ticker).
		Str("pe", string(v.PE.Verdict)).
		Bool("fair_value", v.FairValue.Ok()).
		Msg("Valuation computed")
	return v, res.Warnings, nil
}
