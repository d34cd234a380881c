// Package yahoo implements the market data provider on Yahoo Finance's public
// chart and quoteSummary endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	summaryModules = "summaryDetail,defaultKeyStatistics,financialData,assetProfile,price"
)

// Client fetches daily history and fundamentals from Yahoo Finance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// Name implements marketdata.Provider.
func (c *Client) Name() string {
	return "yahoo"
}

// Fetch returns the daily history in window plus a fundamentals snapshot.
// Fundamentals are best effort: a failed quoteSummary call leaves every
// field unknown rather than failing the fetch.
func (c *Client) Fetch(ctx context.Context, ticker string, window marketdata.Window) (domain.MarketData, error) {
	prices, currency, err := c.history(ctx, ticker, window)
	if err != nil {
		return domain.MarketData{}, err
	}

	fundamentals, err := c.fundamentals(ctx, ticker)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Fundamentals unavailable, continuing with prices only")
		fundamentals = domain.Fundamentals{}
	}
	if fundamentals.Currency == "" {
		fundamentals.Currency = currency
	}

	return domain.MarketData{Prices: prices, Fundamentals: fundamentals}, nil
}

func (c *Client) history(ctx context.Context, ticker string, window marketdata.Window) (domain.PriceSeries, string, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(window.From.Unix(), 10))
	q.Set("period2", strconv.FormatInt(window.To.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), q.Encode())

	var resp chartResponse
	if err := c.get(ctx, ticker, reqURL, &resp); err != nil {
		return nil, "", err
	}
	if resp.Chart.Error != nil {
		return nil, "", chartError(ticker, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, "", domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("no chart result"))
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	offset := time.Duration(result.Meta.GMTOffset) * time.Second

	prices := make(domain.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue
		}
		// Bars are keyed by the exchange's calendar day.
		local := time.Unix(ts, 0).UTC().Add(offset)
		bar := domain.DailyBar{
			Date:  time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC),
			Close: *closePrice,
			Open:  valueOr(at(quote.Open, i), *closePrice),
			High:  valueOr(at(quote.High, i), *closePrice),
			Low:   valueOr(at(quote.Low, i), *closePrice),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		// Yahoo occasionally repeats the last session with a live timestamp.
		if n := len(prices); n > 0 && prices[n-1].Date.Equal(bar.Date) {
			prices[n-1] = bar
			continue
		}
		prices = append(prices, bar)
	}

	if len(prices) == 0 {
		return nil, "", domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("empty price history"))
	}
	return prices, result.Meta.Currency, nil
}

func (c *Client) fundamentals(ctx context.Context, ticker string) (domain.Fundamentals, error) {
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", c.baseURL, url.PathEscape(ticker), url.QueryEscape(summaryModules))

	var resp quoteSummaryResponse
	if err := c.get(ctx, ticker, reqURL, &resp); err != nil {
		return domain.Fundamentals{}, err
	}
	if resp.QuoteSummary.Error != nil {
		return domain.Fundamentals{}, chartError(ticker, resp.QuoteSummary.Error)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return domain.Fundamentals{}, domain.NewProviderError(ticker, domain.ReasonNotFound, errors.New("no quoteSummary result"))
	}

	r := resp.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}
	return domain.Fundamentals{
		Name:           name,
		Currency:       r.Price.Currency,
		Sector:         r.AssetProfile.Sector,
		Industry:       r.AssetProfile.Industry,
		TrailingPE:     r.SummaryDetail.TrailingPE.Raw,
		ForwardPE:      r.SummaryDetail.ForwardPE.Raw,
		PriceToBook:    r.DefaultKeyStatistics.PriceToBook.Raw,
		DividendYield:  r.SummaryDetail.DividendYield.Raw,
		DividendRate:   r.SummaryDetail.DividendRate.Raw,
		PayoutRatio:    r.SummaryDetail.PayoutRatio.Raw,
		EarningsGrowth: r.FinancialData.EarningsGrowth.Raw,
		MarketCap:      r.SummaryDetail.MarketCap.Raw,
		CurrentPrice:   r.FinancialData.CurrentPrice.Raw,
	}, nil
}

// get issues a GET and decodes JSON into out, classifying failures.
func (c *Client) get(ctx context.Context, ticker, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.NewProviderError(ticker, domain.ReasonNetworkError, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return marketdata.AsProviderError(ticker, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NewProviderError(ticker, domain.ReasonNotFound, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewProviderError(ticker, domain.ReasonRateLimited, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewProviderError(ticker, domain.ReasonNetworkError, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return marketdata.AsProviderError(ticker, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func chartError(ticker string, e *apiError) error {
	reason := domain.ReasonNetworkError
	if e.Code == "Not Found" {
		reason = domain.ReasonNotFound
	}
	return domain.NewProviderError(ticker, reason, fmt.Errorf("%s: %s", e.Code, e.Description))
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
