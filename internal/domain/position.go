// Package domain holds the types shared across the analytics modules:
// positions, price history, fundamentals, warnings and the error taxonomy.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SharesPerLot is the number of shares in one tradable lot.
const SharesPerLot = 100

// MaxLots is the largest lot count whose share count fits in an int64.
const MaxLots = math.MaxInt64 / SharesPerLot

// DateLayout is the date-only layout used for acquisition and bar dates.
const DateLayout = "2006-01-02"

// Position is a single holding in the ledger.
// AverageCost is per share and nil until a priced purchase is recorded.
type Position struct {
	Ticker      string
	Lots        int64
	AverageCost *decimal.Decimal
	AcquiredOn  *time.Time
}

// Shares returns the share count for the position.
func (p Position) Shares() int64 {
	return p.Lots * SharesPerLot
}

// CostKnown reports whether the position has an average cost.
func (p Position) CostKnown() bool {
	return p.AverageCost != nil
}

// CostBasis returns shares * average cost, or nil when the cost is unknown.
func (p Position) CostBasis() *decimal.Decimal {
	if p.AverageCost == nil {
		return nil
	}
	v := p.AverageCost.Mul(decimal.NewFromInt(p.Shares()))
	return &v
}

// AverageCostFloat is a convenience for numeric consumers.
func (p Position) AverageCostFloat() *float64 {
	if p.AverageCost == nil {
		return nil
	}
	f := p.AverageCost.InexactFloat64()
	return &f
}

// NormalizeTicker upper-cases and validates a ticker symbol.
// Exchange suffixes (BBCA.JK) and index prefixes (^JKSE) are preserved.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", fmt.Errorf("%w: empty ticker", ErrInvalidInput)
	}
	for i, r := range t {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '=':
		case r == '^' && i == 0:
		default:
			return "", fmt.Errorf("%w: ticker %q contains %q", ErrInvalidInput, raw, r)
		}
	}
	if strings.HasPrefix(t, ".") || strings.HasSuffix(t, ".") {
		return "", fmt.Errorf("%w: ticker %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// SplitTicker separates the base symbol from its exchange suffix.
// "BBCA.JK" yields ("BBCA", "JK"); "AAPL" yields ("AAPL", "").
func SplitTicker(ticker string) (base, exchange string) {
	idx := strings.LastIndex(ticker, ".")
	if idx <= 0 {
		return ticker, ""
	}
	return ticker[:idx], ticker[idx+1:]
}

// ParseDate parses a date-only string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, s)
	}
	return t, nil
}
