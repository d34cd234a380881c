package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// addCmd records a purchase, blending it into an existing position.
type addCmd struct {
	app   *App
	price string
	date  string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add lots to a position" }
func (*addCmd) Usage() string {
	return `folio add [-price <idr>] [-date <yyyy-mm-dd>] <ticker> <lots>

  Adds lots to the ledger. Buying more of a held ticker blends the average cost.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.price, "price", "", "purchase price per share")
	f.StringVar(&c.date, "date", "", "acquisition date (2006-01-02)")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage("expected <ticker> <lots>")
	}
	ticker := f.Arg(0)
	lots, err := strconv.ParseInt(f.Arg(1), 10, 64)
	if err != nil {
		return usage("invalid lots %q", f.Arg(1))
	}

	var price *decimal.Decimal
	if c.price != "" {
		p, err := decimal.NewFromString(c.price)
		if err != nil {
			return usage("invalid price %q", c.price)
		}
		price = &p
	}

	var acquired *time.Time
	if c.date != "" {
		d, err := time.Parse("2006-01-02", c.date)
		if err != nil {
			return usage("invalid date %q", c.date)
		}
		acquired = &d
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	pos, warnings, err := container.Ledger.AddOrUpdate(ctx, c.app.Portfolio, ticker, lots, price, acquired)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}

	fmt.Printf("%s: %d lots, average cost %s\n", pos.Ticker, pos.Lots, formatIDRPtr(pos.AverageCost))
	return subcommands.ExitSuccess
}

type removeCmd struct {
	app *App
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a position" }
func (*removeCmd) Usage() string {
	return `folio remove <ticker>
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("expected <ticker>")
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	warnings, err := container.Ledger.Remove(ctx, c.app.Portfolio, f.Arg(0))
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("removed %s\n", strings.ToUpper(strings.TrimSpace(f.Arg(0))))
	return subcommands.ExitSuccess
}

type clearCmd struct {
	app *App
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "remove every position" }
func (*clearCmd) Usage() string {
	return `folio clear -yes

  Empties the ledger. Requires -yes.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm clearing the ledger")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.yes {
		return usage("refusing to clear %q without -yes", c.app.Portfolio)
	}

	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	warnings, err := container.Ledger.Clear(ctx, c.app.Portfolio)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("cleared %s\n", c.app.Portfolio)
	return subcommands.ExitSuccess
}

// listCmd prints the ledger without touching market data.
type listCmd struct {
	app *App
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list ledger positions" }
func (*listCmd) Usage() string {
	return `folio list
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := c.app.Open(ctx)
	if err != nil {
		return fail("%v", err)
	}

	l, warnings, err := container.Ledger.Load(ctx, c.app.Portfolio)
	printWarnings(warnings)
	if err != nil {
		return fail("%v", err)
	}

	printMarkdown(PositionsMarkdown(c.app.Portfolio, l.Positions()))
	return subcommands.ExitSuccess
}
