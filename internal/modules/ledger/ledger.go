// Package ledger tracks portfolio positions and their weighted-average cost.
package ledger

import (
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// CostBlendMode decides how an unknown cost enters the weighted average.
type CostBlendMode string

const (
	// CostBlendUnknownAsZero treats an unknown cost as zero value. This
	// understates the average and is reported with a warning.
	CostBlendUnknownAsZero CostBlendMode = "unknown_as_zero"
	// CostBlendExcludeUnknown leaves the unknown side out of the average and
	// keeps the known cost.
	CostBlendExcludeUnknown CostBlendMode = "exclude_unknown"
)

// ParseCostBlendMode validates a textual mode. Empty means the default.
func ParseCostBlendMode(s string) (CostBlendMode, error) {
	switch CostBlendMode(s) {
	case "", CostBlendUnknownAsZero:
		return CostBlendUnknownAsZero, nil
	case CostBlendExcludeUnknown:
		return CostBlendExcludeUnknown, nil
	}
	return "", fmt.Errorf("%w: cost blend mode %q", domain.ErrInvalidInput, s)
}

// Ledger is an insertion-ordered set of positions keyed by ticker.
// It is a plain value: callers load it, mutate it, and persist it through
// a Service, which owns locking.
type Ledger struct {
	order     []string
	positions map[string]domain.Position
	mode      CostBlendMode
}

// New creates an empty ledger.
func New(mode CostBlendMode) *Ledger {
	if mode == "" {
		mode = CostBlendUnknownAsZero
	}
	return &Ledger{
		positions: make(map[string]domain.Position),
		mode:      mode,
	}
}

// FromPositions builds a ledger preserving the given order. A repeated
// ticker keeps its first slot and takes the later value.
func FromPositions(mode CostBlendMode, positions []domain.Position) *Ledger {
	l := New(mode)
	for _, p := range positions {
		l.put(p)
	}
	return l
}

// Mode returns the cost blending mode.
func (l *Ledger) Mode() CostBlendMode {
	return l.mode
}

// Len returns the number of positions.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Tickers returns tickers in insertion order.
func (l *Ledger) Tickers() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Positions returns a copy of all positions in insertion order.
func (l *Ledger) Positions() []domain.Position {
	out := make([]domain.Position, 0, len(l.order))
	for _, t := range l.order {
		out = append(out, l.positions[t])
	}
	return out
}

// Get returns the position for ticker.
func (l *Ledger) Get(ticker string) (domain.Position, bool) {
	t, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return domain.Position{}, false
	}
	p, ok := l.positions[t]
	return p, ok
}

// AddOrUpdate buys lots of ticker at pricePerShare (nil when unknown).
//
// A new ticker is created with the given lots and cost. For an existing
// ticker lots are added and the average cost becomes
// (oldLots*oldCost + lots*price) / (oldLots + lots). When one side's cost is
// unknown the ledger's CostBlendMode decides the outcome and a
// CostBasisApproximated warning is returned.
func (l *Ledger) AddOrUpdate(ticker string, lots int64, pricePerShare *decimal.Decimal, acquiredOn *time.Time) (domain.Position, []domain.Warning, error) {
	t, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return domain.Position{}, nil, err
	}
	if lots <= 0 {
		return domain.Position{}, nil, fmt.Errorf("%w: lots must be positive, got %d", domain.ErrInvalidInput, lots)
	}
	if lots > domain.MaxLots {
		return domain.Position{}, nil, fmt.Errorf("%w: lots %d exceeds %d", domain.ErrInvalidInput, lots, int64(domain.MaxLots))
	}
	if pricePerShare != nil && pricePerShare.IsNegative() {
		return domain.Position{}, nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	existing, ok := l.positions[t]
	if !ok {
		p := domain.Position{
			Ticker:      t,
			Lots:        lots,
			AverageCost: copyDecimal(pricePerShare),
			AcquiredOn:  acquiredOn,
		}
		l.put(p)
		return p, nil, nil
	}

	if lots > domain.MaxLots-existing.Lots {
		return domain.Position{}, nil, fmt.Errorf("%w: %s would exceed %d lots", domain.ErrInvalidInput, t, int64(domain.MaxLots))
	}
	newLots := existing.Lots + lots
	cost, warnings := l.blend(t, existing.Lots, existing.AverageCost, lots, pricePerShare, newLots)

	updated := existing
	updated.Lots = newLots
	updated.AverageCost = cost
	if updated.AcquiredOn == nil {
		updated.AcquiredOn = acquiredOn
	}
	l.put(updated)
	return updated, warnings, nil
}

func (l *Ledger) blend(ticker string, oldLots int64, oldCost *decimal.Decimal, lots int64, price *decimal.Decimal, newLots int64) (*decimal.Decimal, []domain.Warning) {
	total := decimal.NewFromInt(newLots)

	switch {
	case oldCost != nil && price != nil:
		v := weighted(oldLots, *oldCost).Add(weighted(lots, *price)).Div(total)
		return &v, nil

	case oldCost == nil && price == nil:
		return nil, nil

	case l.mode == CostBlendExcludeUnknown:
		known := oldCost
		if known == nil {
			known = price
		}
		w := domain.NewWarning(domain.WarnCostBasisApproximated, ticker,
			"cost of %d lots is unknown and was left out of the average", unknownLots(oldCost, oldLots, lots))
		return copyDecimal(known), []domain.Warning{w}

	default:
		var v decimal.Decimal
		if oldCost != nil {
			v = weighted(oldLots, *oldCost).Div(total)
		} else {
			v = weighted(lots, *price).Div(total)
		}
		w := domain.NewWarning(domain.WarnCostBasisApproximated, ticker,
			"cost of %d lots is unknown and was counted as zero", unknownLots(oldCost, oldLots, lots))
		return &v, []domain.Warning{w}
	}
}

// Remove deletes ticker. It returns domain.ErrNotFound when absent.
func (l *Ledger) Remove(ticker string) error {
	t, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if _, ok := l.positions[t]; !ok {
		return fmt.Errorf("%w: %s is not in the ledger", domain.ErrNotFound, t)
	}
	delete(l.positions, t)
	for i, o := range l.order {
		if o == t {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every position.
func (l *Ledger) Clear() {
	l.order = nil
	l.positions = make(map[string]domain.Position)
}

func (l *Ledger) put(p domain.Position) {
	if _, ok := l.positions[p.Ticker]; !ok {
		l.order = append(l.order, p.Ticker)
	}
	l.positions[p.Ticker] = p
}

func weighted(lots int64, cost decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(lots).Mul(cost)
}

func unknownLots(oldCost *decimal.Decimal, oldLots, lots int64) int64 {
	if oldCost == nil {
		return oldLots
	}
	return lots
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
