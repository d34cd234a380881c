package clientdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CleanupJob removes market data entries older than the retention window.
// It should be scheduled to run daily.
type CleanupJob struct {
	repo      *Repository
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewCleanupJob creates a new market data cleanup job.
func NewCleanupJob(repo *Repository, retention time.Duration, log zerolog.Logger) *CleanupJob {
	if retention <= 0 {
		retention = RetentionMarketData
	}
	return &CleanupJob{
		repo:      repo,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("job", "market_data_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	cutoff := j.now().Add(-j.retention)

	deleted, err := j.repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete old market data")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Market data cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "market_data_cleanup"
}
