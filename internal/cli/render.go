package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/projection"
	"github.com/aristath/folio/internal/modules/risk"
	"github.com/aristath/folio/internal/modules/technicals"
	"github.com/aristath/folio/internal/modules/valuation"
)

const (
	currency = money.IDR
	dash     = "-"
)

// printMarkdown renders md for the terminal, falling back to plain text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		if out, err := r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

// FormatIDR formats an amount in rupiah.
func FormatIDR(amount decimal.Decimal) string {
	cur := money.GetCurrency(currency)
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

func formatIDRPtr(d *decimal.Decimal) string {
	if d == nil {
		return dash
	}
	return FormatIDR(*d)
}

func formatIDRFloat(f float64) string {
	return FormatIDR(decimal.NewFromFloat(f))
}

func formatPrice(f *float64) string {
	if f == nil {
		return dash
	}
	return fmt.Sprintf("%.2f", *f)
}

func formatPct(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

func formatPctPtr(f *float64) string {
	if f == nil {
		return dash
	}
	return formatPct(*f)
}

func formatOptionalPct(o domain.Optional[float64]) string {
	if v, ok := o.Get(); ok {
		return formatPct(v)
	}
	return dash
}

func formatOptionalFloat(o domain.Optional[float64]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%.2f", v)
	}
	return dash
}

// PositionsMarkdown lists ledger positions without market data.
func PositionsMarkdown(portfolioID string, positions []domain.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Ledger `%s`\n\n", portfolioID)
	if len(positions) == 0 {
		b.WriteString("No positions.\n")
		return b.String()
	}

	b.WriteString("| Ticker | Lots | Shares | Avg cost | Acquired |\n")
	b.WriteString("|---|---:|---:|---:|---|\n")
	for _, p := range positions {
		acquired := dash
		if p.AcquiredOn != nil {
			acquired = p.AcquiredOn.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %s | %s |\n",
			p.Ticker, p.Lots, p.Shares(), formatIDRPtr(p.AverageCost), acquired)
	}
	return b.String()
}

// SummaryMarkdown renders a valued portfolio.
func SummaryMarkdown(s portfolio.Summary) string {
	var b strings.Builder
	b.WriteString("## Holdings\n\n")
	if len(s.Positions) == 0 {
		b.WriteString("No positions.\n")
		return b.String()
	}

	b.WriteString("| Ticker | Lots | Avg cost | Last | Value | P&L | P&L % | Weight |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, p := range s.Positions {
		pnl := dash
		if v, ok := p.UnrealizedPnL.Get(); ok {
			pnl = FormatIDR(v)
		}
		last := formatPrice(p.LastClose)
		if p.Stale {
			last += " (stale)"
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s |\n",
			p.Ticker, p.Lots, formatIDRPtr(p.AverageCost), last,
			formatIDRPtr(p.MarketValue), pnl, formatOptionalPct(p.UnrealizedPct), formatPct(p.Weight))
	}

	fmt.Fprintf(&b, "\n**Total value:** %s  \n", FormatIDR(s.TotalValue))
	fmt.Fprintf(&b, "**Unrealized P&L:** %s (%s)  \n", FormatIDR(s.TotalPnL), formatOptionalPct(s.TotalPnLPct))
	fmt.Fprintf(&b, "**Dividend yield:** %s  \n", formatPct(s.DividendYield))
	fmt.Fprintf(&b, "**Priced:** %d of %d\n", s.Priced, len(s.Positions))

	if len(s.Sectors) > 0 {
		b.WriteString("\n### Sectors\n\n| Sector | Weight | Tickers |\n|---|---:|---|\n")
		for _, g := range s.Sectors {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", g.Name, formatPct(g.CurrentPct), strings.Join(g.Tickers, ", "))
		}
	}
	return b.String()
}

// TechnicalsMarkdown renders indicator snapshots.
func TechnicalsMarkdown(reports []technicals.Report) string {
	var b strings.Builder
	b.WriteString("## Technicals\n\n")
	if len(reports) == 0 {
		b.WriteString("No data.\n")
		return b.String()
	}
	b.WriteString("| Ticker | Close | RSI 14 | Zone | MACD | SMA 50 | SMA 200 | Crossover |\n")
	b.WriteString("|---|---:|---:|---|---|---:|---:|---|\n")
	for _, r := range reports {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.Ticker, formatPrice(r.Latest.Close), formatPrice(r.Latest.RSI14), r.RSIZone,
			r.MACDTrend, formatPrice(r.Latest.SMA50), formatPrice(r.Latest.SMA200), r.Crossover)
	}
	return b.String()
}

// ValuationsMarkdown renders fundamental signals.
func ValuationsMarkdown(vals []valuation.Valuation) string {
	var b strings.Builder
	b.WriteString("## Valuation\n\n")
	if len(vals) == 0 {
		b.WriteString("No data.\n")
		return b.String()
	}
	b.WriteString("| Ticker | Price | PE vs industry | Fair value | Margin | Payout | Forecast |\n")
	b.WriteString("|---|---:|---|---:|---:|---|---|\n")
	for _, v := range vals {
		rec := dash
		if r, ok := v.Recommendation.Get(); ok {
			rec = fmt.Sprintf("%s (%+.1f%%)", r.Action, r.Change*100)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			v.Ticker, formatPrice(v.Price), v.PE.Verdict, formatOptionalFloat(v.FairValue),
			formatOptionalPct(v.MarginOfSafety), v.Payout, rec)
	}
	return b.String()
}

// OptimizationMarkdown renders target weights.
func OptimizationMarkdown(r optimization.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Allocation (%s)\n\n", r.Method)
	b.WriteString("| Ticker | Weight |\n|---|---:|\n")
	for _, w := range r.Weights {
		fmt.Fprintf(&b, "| %s | %s |\n", w.Ticker, formatPct(w.Weight))
	}
	fmt.Fprintf(&b, "\n**Expected return:** %s  \n", formatPctPtr(r.ExpectedReturn))
	fmt.Fprintf(&b, "**Volatility:** %s  \n", formatPctPtr(r.Volatility))
	sharpe := dash
	if r.Sharpe != nil {
		sharpe = fmt.Sprintf("%.2f", *r.Sharpe)
	}
	fmt.Fprintf(&b, "**Sharpe:** %s (risk-free %s, %d observations)\n", sharpe, formatPct(r.RiskFreeRate), r.Observations)
	return b.String()
}

// RiskMarkdown renders beta, VaR and the stress table.
func RiskMarkdown(r risk.Report) string {
	var b strings.Builder
	b.WriteString("## Risk\n\n")
	beta := dash
	if v, ok := r.Beta.Get(); ok {
		beta = fmt.Sprintf("%.2f", v)
	} else if r.Beta.Reason != "" {
		beta = dash + " (" + r.Beta.Reason + ")"
	}
	fmt.Fprintf(&b, "**Beta vs %s:** %s  \n", r.Benchmark, beta)
	for _, v := range r.VaR {
		amount := dash
		if v.Amount != nil {
			amount = formatIDRFloat(*v.Amount)
		}
		fmt.Fprintf(&b, "**VaR %.0f%%:** %s (%s)  \n", v.Confidence*100, formatOptionalPct(v.Return), amount)
	}

	if len(r.Stress) > 0 {
		b.WriteString("\n| Scenario | Value | Change |\n|---|---:|---:|\n")
		for _, s := range r.Stress {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Name, formatIDRFloat(s.Value), formatIDRFloat(s.Change))
		}
		if r.StressNote != "" {
			fmt.Fprintf(&b, "\n_%s_\n", r.StressNote)
		}
	}
	return b.String()
}

// ProjectionMarkdown renders a projected series.
func ProjectionMarkdown(r projection.Result) string {
	var b strings.Builder
	a := r.Assumptions
	fmt.Fprintf(&b, "## Projection (%s, %d years)\n\n", a.Mode, a.Years)
	fmt.Fprintf(&b, "Start %s, growth %s, dividend yield %s, reinvest %t",
		formatIDRFloat(a.InitialValue), formatPct(a.GrowthRate), formatPct(a.DividendYield), a.Reinvest)
	if a.Contribution > 0 {
		fmt.Fprintf(&b, ", monthly contribution %s", formatIDRFloat(a.Contribution))
	}
	b.WriteString("\n\n| Year | Value |\n|---:|---:|\n")
	for _, p := range r.Series {
		fmt.Fprintf(&b, "| %d | %s |\n", p.Year, formatIDRFloat(p.Value))
	}
	fmt.Fprintf(&b, "\n**Final value:** %s\n", formatIDRFloat(r.FinalValue))
	return b.String()
}

// WarningsMarkdown lists warnings, or nothing when there are none.
func WarningsMarkdown(ws domain.Warnings) string {
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Warnings\n\n")
	for _, w := range ws {
		fmt.Fprintf(&b, "- %s\n", w.String())
	}
	return b.String()
}

// AnalysisMarkdown renders a full batch analysis.
func AnalysisMarkdown(a portfolio.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis `%s`\n\n_run %s at %s_\n\n", a.PortfolioID, a.RunID, a.GeneratedAt.Format("2006-01-02 15:04"))
	b.WriteString(SummaryMarkdown(a.Summary))
	b.WriteString("\n")
	b.WriteString(TechnicalsMarkdown(a.Technicals))
	b.WriteString("\n")
	b.WriteString(ValuationsMarkdown(a.Valuations))
	b.WriteString("\n")
	if r, ok := a.Optimization.Get(); ok {
		b.WriteString(OptimizationMarkdown(r))
	} else {
		fmt.Fprintf(&b, "## Allocation\n\nUnavailable: %s\n", a.Optimization.Reason)
	}
	b.WriteString("\n")
	if r, ok := a.Risk.Get(); ok {
		b.WriteString(RiskMarkdown(r))
	} else {
		fmt.Fprintf(&b, "## Risk\n\nUnavailable: %s\n", a.Risk.Reason)
	}
	if w := WarningsMarkdown(a.Warnings); w != "" {
		b.WriteString("\n")
		b.WriteString(w)
	}
	return b.String()
}

func printWarnings(ws domain.Warnings) {
	for _, w := range ws {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.String())
	}
}
