package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/config"
	"github.com/aristath/folio/internal/database"
)

// InitializeDatabases opens the market data cache and, for the sqlite
// backend, the ledger database, and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{Config: cfg, Log: log}

	// cache.db - re-fetchable market data
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.Storage.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	// ledger.db - position records, only for the sqlite backend
	if cfg.Storage.LedgerBackend == config.LedgerBackendSQLite {
		ledgerDB, err := database.New(database.Config{
			Path:    filepath.Join(cfg.Storage.DataDir, "ledger.db"),
			Profile: database.ProfileLedger,
			Name:    "ledger",
		})
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
		}
		container.LedgerDB = ledgerDB
	}

	for _, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Int("databases", len(container.Databases())).Msg("Databases initialized and schemas applied")
	return container, nil
}
