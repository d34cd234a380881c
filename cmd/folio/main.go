// Command folio manages the ledger and runs analytics from the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/cli"
	"github.com/aristath/folio/internal/modules/ledger"
)

func main() {
	ctx := context.Background()
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	app := &cli.App{}
	flag.StringVar(&app.Portfolio, "portfolio", ledger.DefaultPortfolioID, "portfolio id")
	flag.BoolVar(&app.Verbose, "v", false, "log debug output to stderr")

	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cli.Register(commander, app)

	flag.Parse()
	status := commander.Execute(ctx)
	app.Close()
	os.Exit(int(status))
}
