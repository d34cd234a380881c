package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/folio/internal/domain"
)

// FileStore keeps each portfolio in <dir>/<portfolioID>.json.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing portfolioID.
func (s *FileStore) Path(portfolioID string) string {
	return filepath.Join(s.dir, portfolioID+".json")
}

// Load reads and decodes the ledger file.
func (s *FileStore) Load(_ context.Context, portfolioID string) (Decoded, error) {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return Decoded{}, err
	}
	data, err := os.ReadFile(s.Path(portfolioID))
	if errors.Is(err, os.ErrNotExist) {
		return Decoded{}, nil
	}
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to read ledger %s: %w", portfolioID, err)
	}
	return Decode(data)
}

// Save writes to a temp file in the same directory, syncs it and renames it
// over the target so readers see either the old or the new ledger.
func (s *FileStore) Save(_ context.Context, portfolioID string, positions []domain.Position) error {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return err
	}
	data, err := Encode(positions)
	if err != nil {
		return fmt.Errorf("failed to encode ledger %s: %w", portfolioID, err)
	}
	return writeFileAtomic(s.Path(portfolioID), data)
}

// Quarantine renames the ledger file to <name>.json.<timestamp>.corrupt.
func (s *FileStore) Quarantine(_ context.Context, portfolioID string) (string, error) {
	if err := ValidatePortfolioID(portfolioID); err != nil {
		return "", err
	}
	src := s.Path(portfolioID)
	dst := fmt.Sprintf("%s.%s.corrupt", src, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to quarantine ledger %s: %w", portfolioID, err)
	}
	return dst, nil
}

func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
