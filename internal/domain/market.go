package domain

import "time"

// DailyBar is one OHLCV sample.
type DailyBar struct {
	Date   time.Time `json:"date" msgpack:"d"`
	Open   float64   `json:"open" msgpack:"o"`
	High   float64   `json:"high" msgpack:"h"`
	Low    float64   `json:"low" msgpack:"l"`
	Close  float64   `json:"close" msgpack:"c"`
	Volume int64     `json:"volume" msgpack:"v"`
}

// PriceSeries is a date-ordered daily history.
type PriceSeries []DailyBar

// Closes returns the closing prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Dates returns the bar dates in order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Date
	}
	return out
}

// LastClose returns the most recent close, or nil for an empty series.
func (s PriceSeries) LastClose() *float64 {
	if len(s) == 0 {
		return nil
	}
	c := s[len(s)-1].Close
	return &c
}

// CloseByDate indexes closes by calendar day (yyyy-mm-dd).
func (s PriceSeries) CloseByDate() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, b := range s {
		out[b.Date.Format(DateLayout)] = b.Close
	}
	return out
}

// Fundamentals is a flat snapshot of company metrics.
// Nil pointers and empty strings mean "unknown", never zero.
type Fundamentals struct {
	Name           string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Currency       string   `json:"currency,omitempty" msgpack:"currency,omitempty"`
	Sector         string   `json:"sector,omitempty" msgpack:"sector,omitempty"`
	Industry       string   `json:"industry,omitempty" msgpack:"industry,omitempty"`
	TrailingPE     *float64 `json:"trailing_pe" msgpack:"trailing_pe"`
	ForwardPE      *float64 `json:"forward_pe" msgpack:"forward_pe"`
	IndustryPE     *float64 `json:"industry_pe" msgpack:"industry_pe"`
	PriceToBook    *float64 `json:"price_to_book" msgpack:"price_to_book"`
	DividendYield  *float64 `json:"dividend_yield" msgpack:"dividend_yield"`
	DividendRate   *float64 `json:"dividend_rate" msgpack:"dividend_rate"`
	PayoutRatio    *float64 `json:"payout_ratio" msgpack:"payout_ratio"`
	EarningsGrowth *float64 `json:"earnings_growth" msgpack:"earnings_growth"`
	MarketCap      *float64 `json:"market_cap" msgpack:"market_cap"`
	CurrentPrice   *float64 `json:"current_price" msgpack:"current_price"`
}

// MarketData is what a provider returns for one ticker.
type MarketData struct {
	Prices       PriceSeries  `msgpack:"prices"`
	Fundamentals Fundamentals `msgpack:"fundamentals"`
}

// CacheEntry is a stored provider response stamped with its fetch time.
type CacheEntry struct {
	Ticker    string     `msgpack:"ticker"`
	Data      MarketData `msgpack:"data"`
	FetchedAt time.Time  `msgpack:"fetched_at"`
}

// IsFresh reports whether the entry is younger than ttl at now.
func (e CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	if e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
