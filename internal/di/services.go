package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/clients/eodhd"
	"github.com/aristath/folio/internal/clients/yahoo"
	"github.com/aristath/folio/internal/config"
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

// InitializeServices builds the provider, stores and every service.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.EventBus = events.NewBus(log)
	container.Scheduler = scheduler.New(log)

	// Market data
	provider, err := newProvider(cfg, log)
	if err != nil {
		return err
	}
	md := cfg.MarketData
	container.Provider = marketdata.NewRetryingProvider(provider, md.ProviderTimeout.Std(), md.RetryBackoff.Std(), log)
	container.MarketDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
	container.MarketData = marketdata.NewCache(container.MarketDataRepo, container.Provider, marketdata.Config{
		TTL:         md.CacheTTL.Std(),
		WindowDays:  md.WindowDays,
		Concurrency: md.Concurrency,
	}, container.EventBus, log)

	// Ledger
	mode, err := ledger.ParseCostBlendMode(cfg.Storage.CostBlendMode)
	if err != nil {
		return err
	}
	var store ledger.Store
	if container.LedgerDB != nil {
		store = ledger.NewSQLiteStore(container.LedgerDB.Conn())
	} else {
		fs, err := ledger.NewFileStore(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize ledger file store: %w", err)
		}
		store = fs
	}
	container.Ledger = ledger.NewService(store, mode, container.EventBus, log)

	// Analytics
	container.Technicals = technicals.NewService(container.MarketData, log)
	container.Optimizer = optimization.NewService(container.MarketData, cfg.Analytics.RiskFreeRate, log)
	container.Risk = risk.NewService(container.MarketData, md.Benchmark, log)
	container.Valuation = valuation.NewService(container.MarketData, log)
	container.Allocation = allocation.NewService(container.MarketData, container.Optimizer, log)
	container.Portfolio = portfolio.NewService(
		container.Ledger,
		container.MarketData,
		container.Technicals,
		container.Valuation,
		container.Optimizer,
		container.Risk,
		container.EventBus,
		log,
	)
	container.Projection = projection.NewService(container.Portfolio, log)

	// Backup
	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Bucket:          cfg.Backup.Bucket,
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize backup storage: %w", err)
		}
		container.Backup = reliability.NewBackupService(s3Client, container.Ledger, cfg.Storage.Portfolios, log)
	}

	log.Info().
		Str("provider", provider.Name()).
		Str("ledger_mode", string(mode)).
		Bool("backup", container.Backup != nil).
		Msg("Services initialized")
	return nil
}

func newProvider(cfg *config.Config, log zerolog.Logger) (marketdata.Provider, error) {
	switch cfg.MarketData.Provider {
	case config.ProviderYahoo:
		return yahoo.NewClient(log), nil
	case config.ProviderEODHD:
		return eodhd.NewClient(cfg.MarketData.EODHDAPIKey, log), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.MarketData.Provider)
	}
}
