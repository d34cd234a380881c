package projection

import (
	"context"
	"fmt"

	"github.com/aristath/folio/internal/domain"
	"github.com/rs/zerolog"
)

// Baseline is the portfolio summary a projection starts from.
type Baseline struct {
	Value         float64 `json:"value"`
	DividendYield float64 `json:"dividend_yield"`
}

// BaselineSource derives the current portfolio value and blended dividend
// yield from the ledger and market data.
type BaselineSource interface {
	Baseline(ctx context.Context, portfolioID string) (Baseline, domain.Warnings, error)
}

// Request overrides the baseline where fields are set.
type Request struct {
	PortfolioID   string   `json:"portfolio"`
	Mode          Mode     `json:"mode"`
	InitialValue  *float64 `json:"initial_value"`
	GrowthRate    float64  `json:"growth_rate"`
	DividendYield *float64 `json:"dividend_yield"`
	Reinvest      bool     `json:"reinvest"`
	Years         int      `json:"years"`
	Contribution  float64  `json:"contribution"`
}

// Result is a projection plus the assumptions actually used.
type Result struct {
	Assumptions Assumptions `json:"assumptions"`
	Series      Series      `json:"series"`
	FinalValue  float64     `json:"final_value"`
}

// Service resolves missing inputs from the portfolio and runs projections.
type Service struct {
	baseline BaselineSource
	log      zerolog.Logger
}

// NewService creates a projection service. baseline may be nil, in which
// case every request must carry its own initial value.
func NewService(baseline BaselineSource, log zerolog.Logger) *Service {
	return &Service{
		baseline: baseline,
		log:      log.With().Str("component", "projection").Logger(),
	}
}

// Project fills InitialValue and DividendYield from the portfolio baseline
// when the request leaves them unset.
func (s *Service) Project(ctx context.Context, req Request) (Result, domain.Warnings, error) {
	var warnings domain.Warnings

	a := Assumptions{
		Mode:         req.Mode,
		GrowthRate:   req.GrowthRate,
		Reinvest:     req.Reinvest,
		Years:        req.Years,
		Contribution: req.Contribution,
	}
	if a.Mode == "" {
		a.Mode = ModeAnnual
	}

	if req.InitialValue == nil || req.DividendYield == nil {
		if s.baseline == nil {
			return Result{}, nil, fmt.Errorf("%w: initial_value and dividend_yield are required", domain.ErrInvalidInput)
		}
		b, ws, err := s.baseline.Baseline(ctx, req.PortfolioID)
		warnings.Merge(ws)
		if err != nil {
			return Result{}, warnings, fmt.Errorf("failed to derive projection baseline: %w", err)
		}
		a.InitialValue = b.Value
		a.DividendYield = b.DividendYield
	}
	if req.InitialValue != nil {
		a.InitialValue = *req.InitialValue
	}
	if req.DividendYield != nil {
		a.DividendYield = *req.DividendYield
	}

	series, err := Project(a)
	if err != nil {
		return Result{}, warnings, err
	}

	s.log.Debug().
		Str("mode", string(a.Mode)).
		Int("years", a.Years).
		Float64("initial", a.InitialValue).
		Float64("final", series.Final()).
		Msg("Projection computed")

	return Result{Assumptions: a, Series: series, FinalValue: series.Final()}, warnings, nil
}
