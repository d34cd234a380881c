package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service owns the persistence boundary: every operation runs as
// lock, load, mutate, save for one portfolio.
type Service struct {
	store  Store
	locks  *Locks
	mode   CostBlendMode
	events events.Publisher
	log    zerolog.Logger
}

// NewService creates a ledger service
func NewService(store Store, mode CostBlendMode, publisher events.Publisher, log zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if mode == "" {
		mode = CostBlendUnknownAsZero
	}
	return &Service{
		store:  store,
		locks:  NewLocks(),
		mode:   mode,
		events: publisher,
		log:    log.With().Str("component", "ledger").Logger(),
	}
}

// Mode returns the configured cost blend mode.
func (s *Service) Mode() CostBlendMode {
	return s.mode
}

// Load returns the ledger for portfolioID.
//
// Legacy records are upgraded and written back before returning, so a
// second Load is a no-op. Unreadable state is quarantined and an empty
// ledger is returned with a MalformedPersistedState warning.
func (s *Service) Load(ctx context.Context, portfolioID string) (*Ledger, domain.Warnings, error) {
	unlock := s.locks.Lock(portfolioID)
	defer unlock()
	return s.loadLocked(ctx, portfolioID)
}

func (s *Service) loadLocked(ctx context.Context, portfolioID string) (*Ledger, domain.Warnings, error) {
	var warnings domain.Warnings

	decoded, err := s.store.Load(ctx, portfolioID)
	if err != nil {
		if !errors.Is(err, domain.ErrMalformedState) {
			return nil, nil, err
		}

		where, qerr := s.store.Quarantine(ctx, portfolioID)
		if qerr != nil {
			s.log.Error().Err(qerr).Str("portfolio", portfolioID).Msg("Failed to quarantine malformed ledger")
		}
		s.log.Warn().
			Err(err).
			Str("portfolio", portfolioID).
			Str("quarantined_to", where).
			Msg("Malformed ledger state, starting empty")

		msg := fmt.Sprintf("ledger could not be read (%v); starting with an empty ledger", err)
		if where != "" {
			msg += "; previous state kept at " + where
		}
		warnings.Add(domain.Warning{Code: domain.WarnMalformedPersistedState, Message: msg})
		return New(s.mode), warnings, nil
	}

	l := FromPositions(s.mode, decoded.Positions)

	if decoded.Migrated {
		if err := s.store.Save(ctx, portfolioID, l.Positions()); err != nil {
			return nil, nil, fmt.Errorf("failed to persist migrated ledger: %w", err)
		}
		s.log.Info().
			Str("portfolio", portfolioID).
			Int("positions", l.Len()).
			Msg("Migrated legacy ledger records")
	}

	return l, warnings, nil
}

// Update runs fn against the current ledger and saves the result. Nothing
// is saved when fn fails.
func (s *Service) Update(ctx context.Context, portfolioID string, fn func(*Ledger) (domain.Warnings, error)) (*Ledger, domain.Warnings, error) {
	unlock := s.locks.Lock(portfolioID)
	defer unlock()

	l, warnings, err := s.loadLocked(ctx, portfolioID)
	if err != nil {
		return nil, nil, err
	}

	fnWarnings, err := fn(l)
	if err != nil {
		return nil, warnings, err
	}
	warnings.Merge(fnWarnings)

	if err := s.store.Save(ctx, portfolioID, l.Positions()); err != nil {
		return nil, warnings, fmt.Errorf("failed to save ledger %s: %w", portfolioID, err)
	}
	return l, warnings, nil
}

// AddOrUpdate records a purchase and persists the ledger.
func (s *Service) AddOrUpdate(ctx context.Context, portfolioID, ticker string, lots int64, price *decimal.Decimal, acquiredOn *time.Time) (domain.Position, domain.Warnings, error) {
	var pos domain.Position
	l, warnings, err := s.Update(ctx, portfolioID, func(l *Ledger) (domain.Warnings, error) {
		p, ws, err := l.AddOrUpdate(ticker, lots, price, acquiredOn)
		pos = p
		return ws, err
	})
	if err != nil {
		return domain.Position{}, warnings, err
	}

	for _, w := range warnings {
		if w.Code == domain.WarnCostBasisApproximated {
			s.log.Warn().Str("ticker", w.Ticker).Str("mode", string(s.mode)).Msg(w.Message)
		}
	}
	s.events.Emit("ledger", &events.LedgerChangedData{
		PortfolioID: portfolioID,
		Ticker:      pos.Ticker,
		Action:      "add_or_update",
		Positions:   l.Len(),
	})
	return pos, warnings, nil
}

// Remove deletes ticker. A missing ticker returns domain.ErrNotFound and
// leaves the stored ledger untouched.
func (s *Service) Remove(ctx context.Context, portfolioID, ticker string) (domain.Warnings, error) {
	l, warnings, err := s.Update(ctx, portfolioID, func(l *Ledger) (domain.Warnings, error) {
		return nil, l.Remove(ticker)
	})
	if err != nil {
		return warnings, err
	}

	normalized, _ := domain.NormalizeTicker(ticker)
	s.events.Emit("ledger", &events.LedgerChangedData{
		PortfolioID: portfolioID,
		Ticker:      normalized,
		Action:      "remove",
		Positions:   l.Len(),
	})
	return warnings, nil
}

// Clear removes every position from the portfolio.
func (s *Service) Clear(ctx context.Context, portfolioID string) (domain.Warnings, error) {
	_, warnings, err := s.Update(ctx, portfolioID, func(l *Ledger) (domain.Warnings, error) {
		l.Clear()
		return nil, nil
	})
	if err != nil {
		return warnings, err
	}

	s.events.Emit("ledger", &events.LedgerChangedData{PortfolioID: portfolioID, Action: "clear"})
	return warnings, nil
}

// Snapshot returns the encoded ledger, used by backups.
func (s *Service) Snapshot(ctx context.Context, portfolioID string) ([]byte, error) {
	l, _, err := s.Load(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return Encode(l.Positions())
}
