// Package di provides dependency injection type definitions.
package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
	"github.com/aristath/folio/internal/events"
	"github.com/aristath/folio/internal/modules/allocation"
	"github.com/aristath/folio/internal/modules/ledger"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/modules/optimization"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/aristath/folio/internal/modules/projection"
	"github.com/aristath/folio/internal/modules/risk"
	"github.com/aristath/folio/internal/modules/technicals"
	"github.com/aristath/folio/internal/modules/valuation"
	"github.com/aristath/folio/internal/reliability"
	"github.com/aristath/folio/internal/scheduler"
)

// Container holds all dependencies for the application. It is created by
// Wire and shared by the HTTP server and the CLI.
type Container struct {
	Config *config.Config
	Log    zerolog.Logger

	// Databases. LedgerDB is nil when the ledger uses the file backend.
	LedgerDB *database.DB
	CacheDB  *database.DB

	EventBus *events.Bus

	// Market data
	Provider       marketdata.Provider
	MarketDataRepo *clientdata.Repository
	MarketData     *marketdata.Cache

	// Services
	Ledger     *ledger.Service
	Technicals *technicals.Service
	Optimizer  *optimization.Service
	Risk       *risk.Service
	Valuation  *valuation.Service
	Allocation *allocation.Service
	Portfolio  *portfolio.Service
	Projection *projection.Service
	Backup     *reliability.BackupService // nil when no bucket is configured
	Scheduler  *scheduler.Scheduler
}

// JobInstances holds job references for manual triggering. Optional jobs
// are nil when their schedule or target is not configured.
type JobInstances struct {
	CacheCleanup      scheduler.Job
	MarketDataRefresh scheduler.Job
	Backup            scheduler.Job
	Maintenance       scheduler.Job
}

// All returns the configured jobs.
func (j *JobInstances) All() []scheduler.Job {
	var out []scheduler.Job
	for _, job := range []scheduler.Job{j.CacheCleanup, j.MarketDataRefresh, j.Backup, j.Maintenance} {
		if job != nil {
			out = append(out, job)
		}
	}
	return out
}

// Databases returns every open database.
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.LedgerDB, c.CacheDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close closes every database. Safe to call on a partially built container.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			c.Log.Error().Err(err).Str("database", db.Name()).Msg("Failed to close database")
		}
	}
}
