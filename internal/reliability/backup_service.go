// Package reliability provides ledger backups and database maintenance.
package reliability

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "ledger/"
	backupDateLayout = "2006-01-02"
	minBackupsToKeep = 3
)

// Snapshotter produces the persisted form of a portfolio ledger.
type Snapshotter interface {
	Snapshot(ctx context.Context, portfolioID string) ([]byte, error)
}

// BackupDocument is the uploaded object body
type BackupDocument struct {
	PortfolioID string          `json:"portfolio_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Checksum    string          `json:"checksum"`
	Positions   json.RawMessage `json:"positions"`
}

// BackupInfo represents information about a stored backup
type BackupInfo struct {
	Key       string    `json:"key"`
	Date      time.Time `json:"date"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

// BackupService uploads ledger snapshots to object storage
type BackupService struct {
	store      ObjectStore
	ledger     Snapshotter
	portfolios []string
	log        zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewBackupService creates a backup service for the given portfolios
func NewBackupService(store ObjectStore, ledger Snapshotter, portfolios []string, log zerolog.Logger) *BackupService {
	return &BackupService{
		store:      store,
		ledger:     ledger,
		portfolios: portfolios,
		log:        log.With().Str("service", "ledger_backup").Logger(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// Backup uploads one object per portfolio and returns the keys written.
// Keys follow ledger/<date>/<uuid>.json.
func (s *BackupService) Backup(ctx context.Context) ([]string, error) {
	s.log.Info().Int("portfolios", len(s.portfolios)).Msg("Starting ledger backup")
	startTime := time.Now()

	keys := make([]string, 0, len(s.portfolios))
	for _, id := range s.portfolios {
		snapshot, err := s.ledger.Snapshot(ctx, id)
		if err != nil {
			return keys, fmt.Errorf("failed to snapshot %s: %w", id, err)
		}

		created := s.now().UTC()
		doc := BackupDocument{
			PortfolioID: id,
			CreatedAt:   created,
			Checksum:    fmt.Sprintf("sha256:%x", sha256.Sum256(snapshot)),
			Positions:   json.RawMessage(snapshot),
		}
		body, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return keys, fmt.Errorf("failed to encode backup for %s: %w", id, err)
		}

		key := BackupKey(created, s.newID())
		if err := s.store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
			return keys, err
		}
		keys = append(keys, key)

		s.log.Info().
			Str("portfolio", id).
			Str("key", key).
			Int("size_bytes", len(body)).
			Msg("Ledger backup uploaded")
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("objects", len(keys)).
		Msg("Ledger backup completed")
	return keys, nil
}

// BackupKey builds the object key for a backup taken at t.
func BackupKey(t time.Time, id string) string {
	return backupPrefix + t.UTC().Format(backupDateLayout) + "/" + id + ".json"
}

// ListBackups lists stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		rest := strings.TrimPrefix(obj.Key, backupPrefix)
		dateStr, name, ok := strings.Cut(rest, "/")
		if !ok || !strings.HasSuffix(name, ".json") {
			continue
		}
		date, err := time.Parse(backupDateLayout, dateStr)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse date from backup key")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Date:      date,
			SizeBytes: obj.Size,
			Modified:  obj.LastModified,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Date.Equal(backups[j].Date) {
			return backups[i].Date.After(backups[j].Date)
		}
		if !backups[i].Modified.Equal(backups[j].Modified) {
			return backups[i].Modified.After(backups[j].Modified)
		}
		return backups[i].Key < backups[j].Key
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest three. A retention of zero keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Date.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return deleted, nil
}

// BackupJob runs a backup followed by rotation
type BackupJob struct {
	service       *BackupService
	retentionDays int
	timeout       time.Duration
}

// NewBackupJob creates the scheduled backup job
func NewBackupJob(service *BackupService, retentionDays int) *BackupJob {
	return &BackupJob{service: service, retentionDays: retentionDays, timeout: 5 * time.Minute}
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run executes the backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.Backup(ctx); err != nil {
		return err
	}
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		return fmt.Errorf("backup rotation failed: %w", err)
	}
	return nil
}
