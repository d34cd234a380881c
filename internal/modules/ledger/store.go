package ledger

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aristath/folio/internal/domain"
)

// DefaultPortfolioID names the portfolio used when a caller gives none.
const DefaultPortfolioID = "portfolio"

var portfolioIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidatePortfolioID rejects identifiers that are unsafe as file names.
func ValidatePortfolioID(id string) error {
	if !portfolioIDPattern.MatchString(id) {
		return fmt.Errorf("%w: portfolio id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// Store persists ledgers. Save must be all-or-nothing.
type Store interface {
	// Load returns the persisted positions. A missing ledger is an empty
	// Decoded value, not an error. Unparseable state returns an error
	// wrapping domain.ErrMalformedState.
	Load(ctx context.Context, portfolioID string) (Decoded, error)
	Save(ctx context.Context, portfolioID string, positions []domain.Position) error
	// Quarantine moves unreadable state aside so the next Save starts clean.
	// It returns a description of where the state went.
	Quarantine(ctx context.Context, portfolioID string) (string, error)
}
