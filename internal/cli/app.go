// Package cli implements the folio operator commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	"github.com/aristath/folio/pkg/logger"
)

// App carries global flags and the lazily wired container.
type App struct {
	Portfolio string
	Verbose   bool

	container *di.Container
}

// Register adds every command to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&addCmd{app: app}, "ledger")
	c.Register(&removeCmd{app: app}, "ledger")
	c.Register(&clearCmd{app: app}, "ledger")
	c.Register(&listCmd{app: app}, "ledger")

	c.Register(&analyzeCmd{app: app}, "analytics")
	c.Register(&optimizeCmd{app: app}, "analytics")
	c.Register(&projectCmd{app: app}, "analytics")
}

// Open wires the container on first use.
func (a *App) Open(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if a.Verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.container = container
	return container, nil
}

// Close releases the container.
func (a *App) Close() {
	if a.container != nil {
		a.container.Close()
		a.container = nil
	}
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}

func usage(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitUsageError
}
