package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"

	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
)

// forecastFlag collects repeated TICKER=PRICE pairs.
type forecastFlag map[string]float64

func (f forecastFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, fmt.Sprintf("%s=%g", k, v))
	}
	return strings.Join(parts, ",")
}

func (f forecastFlag) Set(s string) error {
	for _, pair := range strings.Split(s, ",") {
		ticker, price, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || ticker == "" {
			return fmt.Errorf("expected TICKER=PRICE, got %q", pair)
		}
		v, err := strconv.ParseFloat(price, 64)
		if err != nil {
			return fmt.Errorf("invalid forecast price %q", price)
		}
		f[strings.ToUpper(ticker)] = v
	}
	return nil
}

type analyzeCmd struct {
	app       *App
	rf        float64
	fallback  string
	forecasts forecastFlag
	json      bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "run every analysis over the ledger" }
func (*analyzeCmd) Usage() string {
	return `folio analyze [-rf <rate>] [-fallback none|equal] [-forecast TICKER=PRICE]... [-json]

  Warms the market data cache for every held ticker, then prints holdings,
  technicals, valuation, optimal weights and risk.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	c.forecasts = forecastFlag{}
	f.Float64Var(&c.rf, "rf", -1, "annual risk-free rate; negative uses the configured rate")
	f.StringVar(&c.fallback, "fallback", "", "optimizer fallback when the solver fails (none, equal)")
	f.Var(c.forecasts, "forecast", "external price forecast as TICKER=PRICE (repeatable)")
	f.BoolVar(&c.json, "json", false, "print JSON instead of a report")
}

func (c *analyzeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fallback, err := optimization.ParseFallback(c.fallback)
	if err != nil {
		return usage("%v", err)
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	l, warnings, err := container.Ledger.Load(ctx, c.app.Portfolio)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}
	warmCache(ctx, container, append(l.Tickers(), container.Config.MarketData.Benchmark))

	opts := portfolio.AnalyzeOptions{
		Forecasts: c.forecasts,
		Fallback:  fallback,
	}
	if c.rf >= 0 {
		opts.RiskFreeRate = &c.rf
	}

	analysis, warnings, err := container.Portfolio.Analyze(ctx, c.app.Portfolio, opts)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}

	if c.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(analysis); err != nil {
			return fail("%v", err)
		}
		return subcommands.ExitSuccess
	}

	printMarkdown(AnalysisMarkdown(analysis))
	return subcommands.ExitSuccess
}

// warmCache fetches each ticker once so later lookups hit the cache.
func warmCache(ctx context.Context, container *di.Container, tickers []string) {
	log := container.Log.With().Str("component", "cli").Logger()
	bar := progressbar.NewOptions(len(tickers),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetDescription("Fetching market data..."),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	for _, t := range tickers {
		res := container.MarketData.Get(ctx, t)
		if res.Empty() {
			log.Debug().Str("ticker", t).Str("reason", string(res.Reason)).Msg("No market data")
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
}
