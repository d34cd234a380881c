// Package projection simulates compounded portfolio growth.
//
// Every mode is a deterministic recurrence: the same inputs always produce
// the same series, and zero growth with zero yield and zero contribution
// leaves the value unchanged for the whole horizon.
package projection

import (
	"fmt"
	"math"

	"github.com/aristath/folio/internal/domain"
)

// MaxYears bounds the horizon of a single projection.
const MaxYears = 100

// Mode selects the recurrence used by Project.
type Mode string

const (
	// ModeAnnual compounds yearly at growth plus (optionally) dividend yield.
	ModeAnnual Mode = "annual"
	// ModeMonthly compounds monthly at rate/12 and then adds a flat contribution.
	ModeMonthly Mode = "monthly"
	// ModeCompound is the closed form value*(1+rate)^t.
	ModeCompound Mode = "compound"
)

// ParseMode validates a textual mode. Empty means annual.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAnnual:
		return ModeAnnual, nil
	case ModeMonthly:
		return ModeMonthly, nil
	case ModeCompound:
		return ModeCompound, nil
	}
	return "", fmt.Errorf("%w: projection mode %q", domain.ErrInvalidInput, s)
}

// Point is one yearly sample.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is an ordered projection, one point per year starting at year 1.
type Series []Point

// Final returns the last projected value, or 0 for an empty series.
func (s Series) Final() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Value
}

// Values returns the projected values in order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Assumptions are the user-chosen projection inputs. Rates are fractions
// (0.10 means 10% per year).
type Assumptions struct {
	Mode          Mode    `json:"mode"`
	InitialValue  float64 `json:"initial_value"`
	GrowthRate    float64 `json:"growth_rate"`
	DividendYield float64 `json:"dividend_yield"`
	Reinvest      bool    `json:"reinvest"`
	Years         int     `json:"years"`
	// Contribution is added after every monthly step in ModeMonthly.
	Contribution float64 `json:"contribution"`
}

// Validate rejects inputs that cannot produce a meaningful series.
func (a Assumptions) Validate() error {
	if a.Years < 1 || a.Years > MaxYears {
		return fmt.Errorf("%w: years must be between 1 and %d", domain.ErrInvalidInput, MaxYears)
	}
	for name, v := range map[string]float64{
		"initial_value":  a.InitialValue,
		"growth_rate":    a.GrowthRate,
		"dividend_yield": a.DividendYield,
		"contribution":   a.Contribution,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", domain.ErrInvalidInput, name)
		}
	}
	if a.InitialValue < 0 {
		return fmt.Errorf("%w: initial_value must not be negative", domain.ErrInvalidInput)
	}
	if a.GrowthRate <= -1 {
		return fmt.Errorf("%w: growth_rate must be greater than -1", domain.ErrInvalidInput)
	}
	if a.DividendYield < 0 {
		return fmt.Errorf("%w: dividend_yield must not be negative", domain.ErrInvalidInput)
	}
	if a.Contribution < 0 {
		return fmt.Errorf("%w: contribution must not be negative", domain.ErrInvalidInput)
	}
	return nil
}

// Project runs the recurrence selected by a.Mode.
func Project(a Assumptions) (Series, error) {
	mode, err := ParseMode(string(a.Mode))
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	switch mode {
	case ModeMonthly:
		return Monthly(a.InitialValue, a.Contribution, a.GrowthRate, a.Years), nil
	case ModeCompound:
		return Compound(a.InitialValue, a.GrowthRate, a.Years), nil
	default:
		return Annual(a.InitialValue, a.GrowthRate, a.DividendYield, a.Reinvest, a.Years), nil
	}
}

// Annual compounds once a year: v(t) = v(t-1) * (1 + growth + yield), where
// yield only counts when dividends are reinvested.
func Annual(initial, growth, dividendYield float64, reinvest bool, years int) Series {
	factor := 1 + growth
	if reinvest {
		factor += dividendYield
	}

	out := make(Series, 0, max(years, 0))
	value := initial
	for year := 1; year <= years; year++ {
		value *= factor
		out = append(out, Point{Year: year, Value: value})
	}
	return out
}

// Monthly compounds at annualRate/12 and then adds contribution, for
// years*12 steps, sampling every twelfth step.
func Monthly(initial, contribution, annualRate float64, years int) Series {
	monthlyRate := annualRate / 12

	out := make(Series, 0, max(years, 0))
	value := initial
	for month := 1; month <= years*12; month++ {
		value = value*(1+monthlyRate) + contribution
		if month%12 == 0 {
			out = append(out, Point{Year: month / 12, Value: value})
		}
	}
	return out
}

// Compound evaluates initial*(1+rate)^t for t = 1..years.
func Compound(initial, rate float64, years int) Series {
	out := make(Series, 0, max(years, 0))
	for year := 1; year <= years; year++ {
		out = append(out, Point{Year: year, Value: initial * math.Pow(1+rate, float64(year))})
	}
	return out
}
