package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// SQLiteStore keeps ledgers in the positions table of the ledger database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an already migrated connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load reads positions in insertion order.
func (s *SQLiteStore) Load(ctx context.Context, portfolioID string) (Decoded, error) {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return Decoded{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, lots, average_cost, acquired_on
		FROM positions
		WHERE portfolio_id = ?
		ORDER BY seq ASC
	`, portfolioID)
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var out Decoded
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return Decoded{}, err
		}
		out.Positions = append(out.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return Decoded{}, fmt.Errorf("error iterating positions: %w", err)
	}
	return out, nil
}

func scanPosition(rows *sql.Rows) (domain.Position, error) {
	var (
		ticker     string
		lots       int64
		cost       sql.NullString
		acquiredOn sql.NullString
	)
	if err := rows.Scan(&ticker, &lots, &cost, &acquiredOn); err != nil {
		return domain.Position{}, malformed("scan position: %v", err)
	}

	normalized, err := domain.NormalizeTicker(ticker)
	if err != nil {
		return domain.Position{}, malformed("ticker %q: %v", ticker, err)
	}
	if lots < 0 || lots > domain.MaxLots {
		return domain.Position{}, malformed("%s: lots %d out of range", normalized, lots)
	}

	pos := domain.Position{Ticker: normalized, Lots: lots}
	if cost.Valid {
		d, err := decimal.NewFromString(cost.String)
		if err != nil || d.IsNegative() {
			return domain.Position{}, malformed("%s: cost %q", normalized, cost.String)
		}
		pos.AverageCost = &d
	}
	if acquiredOn.Valid && acquiredOn.String != "" {
		d, err := domain.ParseDate(acquiredOn.String)
		if err != nil {
			return domain.Position{}, malformed("%s: %v", normalized, err)
		}
		pos.AcquiredOn = &d
	}
	return pos, nil
}

// Save replaces the portfolio's rows in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, portfolioID string, positions []domain.Position) error {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return err
	}

	now := time.Now().Unix()
	return database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM positions WHERE portfolio_id = ?", portfolioID); err != nil {
			return fmt.Errorf("failed to clear positions: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO positions (portfolio_id, ticker, seq, lots, average_cost, acquired_on, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range positions {
			var cost any
			if p.AverageCost != nil {
				cost = p.AverageCost.String()
			}
			if _, err := stmt.ExecContext(ctx, portfolioID, p.Ticker, i, p.Lots, cost, formatDate(p.AcquiredOn), now); err != nil {
				return fmt.Errorf("failed to insert %s: %w", p.Ticker, err)
			}
		}
		return nil
	})
}

// Quarantine copies the portfolio's rows to quarantined_positions and
// removes them from positions.
func (s *SQLiteStore) Quarantine(ctx context.Context, portfolioID string) (string, error) {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return "", err
	}

	var moved int64
	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO quarantined_positions (portfolio_id, ticker, seq, lots, average_cost, acquired_on, quarantined_at)
			SELECT portfolio_id, ticker, seq, lots, average_cost, acquired_on, ?
			FROM positions WHERE portfolio_id = ?
		`, time.Now().Unix(), portfolioID)
		if err != nil {
			return fmt.Errorf("failed to copy positions: %w", err)
		}
		moved, _ = res.RowsAffected()

		if _, err := tx.ExecContext(ctx, "DELETE FROM positions WHERE portfolio_id = ?", portfolioID); err != nil {
			return fmt.Errorf("failed to delete positions: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("quarantined_positions (%d rows)", moved), nil
}
