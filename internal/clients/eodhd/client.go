// Package eodhd implements the market data provider on the EODHD API.
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://eodhd.com/api"

// Client fetches end-of-day prices and fundamentals from EODHD.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new EODHD client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "eodhd").Logger(),
	}
}

// Name implements marketdata.Provider.
func (c *Client) Name() string {
	return "eodhd"
}

// Symbol converts a Yahoo-style ticker to EODHD's SYMBOL.EXCHANGE form.
// Indices (^JKSE) map to the INDX exchange; bare symbols default to US.
func Symbol(ticker string) string {
	if strings.HasPrefix(ticker, "^") {
		return strings.TrimPrefix(ticker, "^") + ".INDX"
	}
	if _, exchange := domain.SplitTicker(ticker); exchange == "" {
		return ticker + ".US"
	}
	return ticker
}

type eodBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        float64 `json:"volume"`
}

// Fetch returns daily history and a fundamentals snapshot. Fundamentals are
// best effort: EODHD only serves them on paid plans.
func (c *Client) Fetch(ctx context.Context, ticker string, window marketdata.Window) (domain.MarketData, error) {
	symbol := Symbol(ticker)

	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("api_token", c.apiKey)
	q.Set("from", window.From.Format(domain.DateLayout))
	q.Set("to", window.To.Format(domain.DateLayout))
	addr := fmt.Sprintf("%s/eod/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var bars []eodBar
	if err := c.get(ctx, ticker, addr, &bars); err != nil {
		return domain.MarketData{}, err
	}

	prices := make(domain.PriceSeries, 0, len(bars))
	for _, b := range bars {
		date, err := domain.ParseDate(b.Date)
		if err != nil {
			c.log.Warn().Str("ticker", ticker).Str("date", b.Date).Msg("Skipping bar with invalid date")
			continue
		}
		prices = append(prices, domain.DailyBar{
			Date:   date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	if len(prices) == 0 {
		return domain.MarketData{}, domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("empty price history"))
	}

	fundamentals, err := c.fundamentals(ctx, ticker, symbol)
	if err != nil {
		c.log.Debug().Err(err).Str("ticker", ticker).Msg("Fundamentals unavailable")
		fundamentals = domain.Fundamentals{}
	}

	return domain.MarketData{Prices: prices, Fundamentals: fundamentals}, nil
}

type fundamentalsResponse struct {
	General struct {
		Name         string `json:"Name"`
		CurrencyCode string `json:"CurrencyCode"`
		Sector       string `json:"Sector"`
		Industry     string `json:"Industry"`
	} `json:"General"`
	Highlights struct {
		PERatio                    number `json:"PERatio"`
		DividendYield              number `json:"DividendYield"`
		DividendShare              number `json:"DividendShare"`
		MarketCapitalization       number `json:"MarketCapitalization"`
		QuarterlyEarningsGrowthYOY number `json:"QuarterlyEarningsGrowthYOY"`
	} `json:"Highlights"`
	Valuation struct {
		TrailingPE   number `json:"TrailingPE"`
		ForwardPE    number `json:"ForwardPE"`
		PriceBookMRQ number `json:"PriceBookMRQ"`
	} `json:"Valuation"`
	SplitsDividends struct {
		PayoutRatio number `json:"PayoutRatio"`
	} `json:"SplitsDividends"`
}

func (c *Client) fundamentals(ctx context.Context, ticker, symbol string) (domain.Fundamentals, error) {
	q := url.Values{}
	q.Set("api_token", c.apiKey)
	addr := fmt.Sprintf("%s/fundamentals/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var resp fundamentalsResponse
	if err := c.get(ctx, ticker, addr, &resp); err != nil {
		return domain.Fundamentals{}, err
	}

	trailing := resp.Valuation.TrailingPE.Value
	if trailing == nil {
		trailing = resp.Highlights.PERatio.Value
	}
	return domain.Fundamentals{
		Name:           resp.General.Name,
		Currency:       resp.General.CurrencyCode,
		Sector:         resp.General.Sector,
		Industry:       resp.General.Industry,
		TrailingPE:     trailing,
		ForwardPE:      resp.Valuation.ForwardPE.Value,
		PriceToBook:    resp.Valuation.PriceBookMRQ.Value,
		DividendYield:  resp.Highlights.DividendYield.Value,
		DividendRate:   resp.Highlights.DividendShare.Value,
		PayoutRatio:    resp.SplitsDividends.PayoutRatio.Value,
		EarningsGrowth: resp.Highlights.QuarterlyEarningsGrowthYOY.Value,
		MarketCap:      resp.Highlights.MarketCapitalization.Value,
	}, nil
}

// number decodes EODHD metrics, which arrive as numbers, numeric strings,
// "NA" or null. Anything non-numeric is unknown.
type number struct {
	Value *float64
}

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" || s == "NA" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	n.Value = &v
	return nil
}

func (c *Client) get(ctx context.Context, ticker, addr string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return domain.NewProviderError(ticker, domain.ReasonNetworkError, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return marketdata.AsProviderError(ticker, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewProviderError(ticker, domain.ReasonNotFound, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return domain.NewProviderError(ticker, domain.ReasonRateLimited, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewProviderError(ticker, domain.ReasonNetworkError, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewProviderError(ticker, domain.ReasonNetworkError, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// redact keeps the API token out of logged URL errors.
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if apiKey == "" || !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = strings.ReplaceAll(urlErr.URL, apiKey, "REDACTED")
	return &redacted
}
