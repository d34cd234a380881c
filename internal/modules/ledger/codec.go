package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
)

// record is the persisted shape of a position.
type record struct {
	Lots        int64        `json:"lots"`
	AverageCost *json.Number `json:"average_cost"`
	AcquiredOn  string       `json:"acquired_on,omitempty"`
}

// legacyRecord accepts every historical field name.
type legacyRecord struct {
	Lots           *json.Number `json:"lots"`
	Lot            *json.Number `json:"lot"`
	AverageCost    *json.Number `json:"average_cost"`
	HargaBeli      *json.Number `json:"harga_beli"`
	HargaPerLembar *json.Number `json:"harga_per_lembar"`
	TotalInvestasi *json.Number `json:"total_investasi"`
	AcquiredOn     *string      `json:"acquired_on"`
	TglBeli        *string      `json:"tgl_beli"`
}

// Decoded is the result of reading a persisted ledger.
type Decoded struct {
	Positions []domain.Position
	// Migrated is true when any record used a legacy shape and the
	// canonical form should be written back.
	Migrated bool
}

// Encode writes positions as a JSON object keyed by ticker, preserving order.
func Encode(positions []domain.Position) ([]byte, error) {
	var buf bytes.Buffer
	if len(positions) == 0 {
		return []byte("{}\n"), nil
	}

	buf.WriteString("{\n")
	for i, p := range positions {
		key, err := json.Marshal(p.Ticker)
		if err != nil {
			return nil, err
		}
		rec := record{Lots: p.Lots}
		if p.AverageCost != nil {
			n := json.Number(p.AverageCost.String())
			rec.AverageCost = &n
		}
		if p.AcquiredOn != nil {
			rec.AcquiredOn = p.AcquiredOn.Format(domain.DateLayout)
		}
		val, err := json.MarshalIndent(rec, "  ", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", p.Ticker, err)
		}

		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(val)
		if i < len(positions)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// Decode parses a persisted ledger. Both the current record shape and the
// legacy ticker-to-lot-count shape are accepted. Any structural problem
// returns an error wrapping domain.ErrMalformedState.
func Decode(data []byte) (Decoded, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Decoded{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Decoded{}, malformed("read opening token: %v", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Decoded{}, malformed("ledger must be a JSON object")
	}

	var out Decoded
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Decoded{}, malformed("read key: %v", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Decoded{}, malformed("read value for %q: %v", key, err)
		}

		ticker, err := domain.NormalizeTicker(key)
		if err != nil {
			return Decoded{}, malformed("key %q: %v", key, err)
		}

		pos, migrated, err := decodeRecord(ticker, raw)
		if err != nil {
			return Decoded{}, err
		}
		if migrated || ticker != key {
			out.Migrated = true
		}

		if i, seen := index[ticker]; seen {
			out.Positions[i] = pos
			out.Migrated = true
			continue
		}
		index[ticker] = len(out.Positions)
		out.Positions = append(out.Positions, pos)
	}

	if _, err := dec.Token(); err != nil {
		return Decoded{}, malformed("read closing token: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Decoded{}, malformed("trailing data after ledger object")
	}
	return out, nil
}

func decodeRecord(ticker string, raw json.RawMessage) (domain.Position, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return domain.Position{}, false, malformed("%s: empty value", ticker)
	}

	// Legacy shape: the value is a bare lot count.
	if raw[0] != '{' {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return domain.Position{}, false, malformed("%s: expected object or lot count", ticker)
		}
		lots, err := parseLots(ticker, n)
		if err != nil {
			return domain.Position{}, false, err
		}
		return domain.Position{Ticker: ticker, Lots: lots}, true, nil
	}

	var lr legacyRecord
	if err := json.Unmarshal(raw, &lr); err != nil {
		return domain.Position{}, false, malformed("%s: %v", ticker, err)
	}

	migrated := false
	lotsNum := lr.Lots
	if lotsNum == nil {
		lotsNum = lr.Lot
		migrated = true
	}
	if lotsNum == nil {
		return domain.Position{}, false, malformed("%s: missing lots", ticker)
	}
	lots, err := parseLots(ticker, *lotsNum)
	if err != nil {
		return domain.Position{}, false, err
	}

	pos := domain.Position{Ticker: ticker, Lots: lots}

	if lr.AverageCost != nil {
		cost, err := parseCost(ticker, *lr.AverageCost)
		if err != nil {
			return domain.Position{}, false, err
		}
		pos.AverageCost = &cost
	} else if cost, used, err := legacyCost(ticker, lots, lr); err != nil {
		return domain.Position{}, false, err
	} else if used {
		migrated = true
		pos.AverageCost = cost
	}

	switch {
	case lr.AcquiredOn != nil && *lr.AcquiredOn != "":
		d, err := domain.ParseDate(*lr.AcquiredOn)
		if err != nil {
			return domain.Position{}, false, malformed("%s: %v", ticker, err)
		}
		pos.AcquiredOn = &d
	case lr.TglBeli != nil && *lr.TglBeli != "":
		d, err := domain.ParseDate(*lr.TglBeli)
		if err != nil {
			return domain.Position{}, false, malformed("%s: %v", ticker, err)
		}
		pos.AcquiredOn = &d
		migrated = true
	}

	return pos, migrated, nil
}

// legacyCost derives a per-share cost from historical field names. Zero in
// a legacy field meant "not recorded".
func legacyCost(ticker string, lots int64, lr legacyRecord) (*decimal.Decimal, bool, error) {
	used := lr.HargaBeli != nil || lr.HargaPerLembar != nil || lr.TotalInvestasi != nil

	if lr.HargaBeli != nil {
		c, err := parseCost(ticker, *lr.HargaBeli)
		if err != nil {
			return nil, used, err
		}
		if c.IsPositive() {
			return &c, used, nil
		}
	}
	if lr.TotalInvestasi != nil && lots > 0 {
		total, err := parseCost(ticker, *lr.TotalInvestasi)
		if err != nil {
			return nil, used, err
		}
		if total.IsPositive() {
			c := total.Div(decimal.NewFromInt(lots * domain.SharesPerLot))
			return &c, used, nil
		}
	}
	if lr.HargaPerLembar != nil {
		c, err := parseCost(ticker, *lr.HargaPerLembar)
		if err != nil {
			return nil, used, err
		}
		if c.IsPositive() {
			return &c, used, nil
		}
	}
	return nil, used, nil
}

func parseLots(ticker string, n json.Number) (int64, error) {
	if i, err := n.Int64(); err == nil {
		if i < 0 {
			return 0, malformed("%s: negative lots %d", ticker, i)
		}
		if i > domain.MaxLots {
			return 0, malformed("%s: lots %d out of range", ticker, i)
		}
		return i, nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f > domain.MaxLots {
		return 0, malformed("%s: lots %q is not a non-negative integer", ticker, n.String())
	}
	return int64(f), nil
}

func parseCost(ticker string, n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(n.String()))
	if err != nil {
		return decimal.Decimal{}, malformed("%s: cost %q: %v", ticker, n.String(), err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, malformed("%s: negative cost %s", ticker, d)
	}
	return d, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedState, fmt.Sprintf(format, args...))
}

// formatDate renders an optional date for storage.
func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}
