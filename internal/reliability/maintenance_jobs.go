package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/database"
)

// MaintenanceJob checks integrity, truncates the WAL and vacuums each
// database. A failed integrity check aborts the run; VACUUM failures are
// logged and skipped.
type MaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(databases []*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	for _, db := range j.databases {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("CRITICAL: integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}

		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}

		if err := j.vacuumDatabase(db); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("VACUUM failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed")
	return nil
}

// vacuumDatabase performs VACUUM on a database
func (j *MaintenanceJob) vacuumDatabase(db *database.DB) error {
	before, err := db.GetStats()
	if err != nil {
		return err
	}

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	after, err := db.GetStats()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", db.Name()).
		Float64("size_before_mb", float64(before.PageCount*before.PageSize)/1024/1024).
		Float64("size_after_mb", float64(after.PageCount*after.PageSize)/1024/1024).
		Msg("VACUUM completed")
	return nil
}
