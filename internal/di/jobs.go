package di

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/reliability"
)

// RegisterJobs creates the background jobs and registers the scheduled
// ones. Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	instances := &JobInstances{}
	sched := container.Scheduler

	instances.CacheCleanup = clientdata.NewCleanupJob(container.MarketDataRepo, cfg.MarketData.CacheRetention.Std(), log)
	if err := sched.AddJob(cfg.MarketData.CleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	instances.MarketDataRefresh = marketdata.NewRefreshJob(container.MarketData, heldTickers(container, cfg.Storage.Portfolios), cfg.MarketData.Benchmark, log)
	if cfg.MarketData.RefreshSchedule != "" {
		if err := sched.AddJob(cfg.MarketData.RefreshSchedule, instances.MarketDataRefresh); err != nil {
			return nil, fmt.Errorf("failed to register market data refresh job: %w", err)
		}
	}

	if container.Backup != nil {
		instances.Backup = reliability.NewBackupJob(container.Backup, cfg.Backup.RetentionDays)
		if err := sched.AddJob(cfg.Backup.Schedule, instances.Backup); err != nil {
			return nil, fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	instances.Maintenance = reliability.NewMaintenanceJob(container.Databases(), log)
	if cfg.Storage.MaintenanceSchedule != "" {
		if err := sched.AddJob(cfg.Storage.MaintenanceSchedule, instances.Maintenance); err != nil {
			return nil, fmt.Errorf("failed to register maintenance job: %w", err)
		}
	}

	log.Info().Int("jobs", len(sched.Jobs())).Msg("Jobs registered")
	return instances, nil
}

// heldTickers lists the distinct tickers across the given portfolios.
func heldTickers(container *Container, portfolios []string) marketdata.TickerSource {
	return func(ctx context.Context) ([]string, error) {
		var tickers []string
		for _, id := range portfolios {
			l, _, err := container.Ledger.Load(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load portfolio %s: %w", id, err)
			}
			tickers = append(tickers, l.Tickers()...)
		}
		slices.Sort(tickers)
		return slices.Compact(tickers), nil
	}
}
