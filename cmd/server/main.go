// Package main is the entry point for the Folio portfolio analytics service.
//
// Startup order:
//  1. Load configuration (.env, optional TOML file, environment)
//  2. Initialize logging
//  3. Wire databases, services and jobs via the DI container
//  4. Start the scheduler and the HTTP server
//  5. Wait for a shutdown signal and stop gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/di"
	allocationhandlers "github.com/aristath/folio/internal/modules/allocation/handlers"
	ledgerhandlers "github.com/aristath/folio/internal/modules/ledger/handlers"
	marketdatahandlers "github.com/aristath/folio/internal/modules/marketdata/handlers"
	optimizationhandlers "github.com/aristath/folio/internal/modules/optimization/handlers"
	portfoliohandlers "github.com/aristath/folio/internal/modules/portfolio/handlers"
	projectionhandlers "github.com/aristath/folio/internal/modules/projection/handlers"
	riskhandlers "github.com/aristath/folio/internal/modules/risk/handlers"
	technicalshandlers "github.com/aristath/folio/internal/modules/technicals/handlers"
	valuationhandlers "github.com/aristath/folio/internal/modules/valuation/handlers"
	"github.com/aristath/folio/internal/server"
	"github.com/aristath/folio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.Server.LogLevel,
		Pretty: cfg.Server.LogPretty,
	})
	logger.SetGlobalLogger(log)

	if v := os.Getenv("VERSION"); v != "" {
		server.Version = v
	}
	log.Info().Str("version", server.Version).Str("data_dir", cfg.Storage.DataDir).Msg("Starting Folio")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, jobs, err := di.Wire(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	databases := make([]server.Database, 0, 2)
	for _, db := range container.Databases() {
		databases = append(databases, db)
	}
	system := server.NewSystemHandlers(log, cfg.Storage.DataDir, databases, container.Scheduler, server.Capabilities{
		Provider:           cfg.MarketData.Provider,
		ProviderConfigured: cfg.MarketData.Provider == config.ProviderYahoo || cfg.MarketData.EODHDAPIKey != "",
		ForecastInput:      true,
		BackupConfigured:   container.Backup != nil,
		ChartRendering:     true,
		IndustryPE:         false,
		LedgerBackend:      cfg.Storage.LedgerBackend,
		Benchmark:          cfg.MarketData.Benchmark,
	})
	system.SetJobs(jobs.All()...)

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Server.Port,
		DevMode: cfg.Server.DevMode,
		Events:  container.EventBus,
		System:  system,
		Modules: []server.RouteRegistrar{
			ledgerhandlers.NewHandler(container.Ledger, log),
			marketdatahandlers.NewHandler(container.MarketData, log),
			technicalshandlers.NewHandler(container.Technicals, log),
			optimizationhandlers.NewHandler(container.Optimizer, container.Ledger, log),
			projectionhandlers.NewHandler(container.Projection, log),
			riskhandlers.NewHandler(container.Risk, container.Ledger, log),
			valuationhandlers.NewHandler(container.Valuation, log),
			allocationhandlers.NewHandler(container.Allocation, container.Ledger, log),
			portfoliohandlers.NewHandler(container.Portfolio, log),
		},
	})

	container.Scheduler.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	container.Scheduler.Stop()
	log.Info().Msg("Server stopped")
}
