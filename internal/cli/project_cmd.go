package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/modules/projection"
)

type projectCmd struct {
	app          *App
	mode         string
	years        int
	growth       float64
	yield        float64
	initial      float64
	reinvest     bool
	contribution float64
	chart        string
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "project portfolio value forward" }
func (*projectCmd) Usage() string {
	return `folio project [-mode annual|monthly] [-years <n>] [-growth <rate>] [-yield <rate>]
              [-initial <idr>] [-reinvest] [-contribution <idr>] [-chart <file.png>]

  Compounds the current portfolio value, or -initial when given. The dividend
  yield defaults to the portfolio's weighted yield.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.mode, "mode", string(projection.ModeAnnual), "compounding mode (annual, monthly)")
	f.IntVar(&c.years, "years", 10, "number of years")
	f.Float64Var(&c.growth, "growth", 0.08, "annual price growth rate")
	f.Float64Var(&c.yield, "yield", -1, "annual dividend yield; negative uses the portfolio yield")
	f.Float64Var(&c.initial, "initial", -1, "starting value; negative uses the portfolio value")
	f.BoolVar(&c.reinvest, "reinvest", false, "reinvest dividends")
	f.Float64Var(&c.contribution, "contribution", 0, "monthly contribution (monthly mode)")
	f.StringVar(&c.chart, "chart", "", "write a PNG chart to this file")
}

func (c *projectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mode, err := projection.ParseMode(c.mode)
	if err != nil {
		return usage("%v", err)
	}

	req := projection.Request{
		PortfolioID:  c.app.Portfolio,
		Mode:         mode,
		GrowthRate:   c.growth,
		Reinvest:     c.reinvest,
		Years:        c.years,
		Contribution: c.contribution,
	}
	if c.initial >= 0 {
		req.InitialValue = &c.initial
	}
	if c.yield >= 0 {
		req.DividendYield = &c.yield
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}
	if req.InitialValue == nil || req.DividendYield == nil {
		l, warnings, err := container.Ledger.Load(ctx, c.app.Portfolio)
		printWarnings(warnings)
		if err != nil {
			return fail("%v", err)
		}
		warmCache(ctx, container, l.Tickers())
	}

	result, warnings, err := container.Projection.Project(ctx, req)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}

	if c.chart != "" {
		title := fmt.Sprintf("%s, %d years", c.app.Portfolio, result.Assumptions.Years)
		png, err := projection.RenderPNG(result.Series, title)
		if err != nil {
			return fail("rendering chart: %v", err)
		}
		if err := os.WriteFile(c.chart, png, 0o644); err != nil {
			return fail("%v", err)
		}
		fmt.Fprintf(os.Stderr, "chart written to %s\n", c.chart)
	}

	printMarkdown(ProjectionMarkdown(result))
	return subcommands.ExitSuccess
}
