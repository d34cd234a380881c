package cli

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/modules/optimization"
)

type optimizeCmd struct {
	app      *App
	rf       float64
	fallback string
}

func (*optimizeCmd) Name() string     { return "optimize" }
func (*optimizeCmd) Synopsis() string { return "compute max-Sharpe weights" }
func (*optimizeCmd) Usage() string {
	return `folio optimize [-rf <rate>] [-fallback none|equal] [<ticker>...]

  Optimizes the given tickers, or every ledger ticker when none are given.
`
}

func (c *optimizeCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.rf, "rf", -1, "annual risk-free rate; negative uses the configured rate")
	f.StringVar(&c.fallback, "fallback", "", "fallback when the solver fails (none, equal)")
}

func (c *optimizeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fallback, err := optimization.ParseFallback(c.fallback)
	if err != nil {
		return usage("%v", err)
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	tickers := f.Args()
	if len(tickers) == 0 {
		l, warnings, err := container.Ledger.Load(ctx, c.app.Portfolio)
		printWarnings(warnings)
		if err != nil {
			return fail("%v", err)
		}
		tickers = l.Tickers()
	}
	warmCache(ctx, container, tickers)

	opts := optimization.Options{Fallback: fallback}
	if c.rf >= 0 {
		opts.RiskFreeRate = &c.rf
	}

	result, warnings, err := container.Optimizer.Optimize(ctx, tickers, opts)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}

	printMarkdown(OptimizationMarkdown(result))
	return subcommands.ExitSuccess
}
