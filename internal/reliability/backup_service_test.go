package reliability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

type staticSnapshotter map[string]string

func (s staticSnapshotter) Snapshot(ctx context.Context, id string) ([]byte, error) {
	data, ok := s[id]
	if !ok {
		return nil, errors.New("no such portfolio")
	}
	return []byte(data), nil
}

func newTestBackup(store ObjectStore, snap Snapshotter, portfolios ...string) *BackupService {
	svc := NewBackupService(store, snap, portfolios, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) }
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func TestBackupService_Backup(t *testing.T) {
	store := newMemoryStore()
	snap := staticSnapshotter{
		"portfolio": `{"BBCA.JK":{"lots":10,"avgCost":9000}}`,
		"pension":   `{}`,
	}
	svc := newTestBackup(store, snap, "portfolio", "pension")

	keys, err := svc.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ledger/2024-03-15/id-1.json", "ledger/2024-03-15/id-2.json"}, keys)

	var doc BackupDocument
	require.NoError(t, json.Unmarshal(store.objects[keys[0]], &doc))
	assert.Equal(t, "portfolio", doc.PortfolioID)
	assert.True(t, strings.HasPrefix(doc.Checksum, "sha256:"))
	assert.JSONEq(t, snap["portfolio"], string(doc.Positions))
	assert.Equal(t, 2024, doc.CreatedAt.Year())
}

func TestBackupService_BackupErrors(t *testing.T) {
	svc := newTestBackup(newMemoryStore(), staticSnapshotter{}, "missing")
	_, err := svc.Backup(context.Background())
	assert.ErrorContains(t, err, "missing")

	store := newMemoryStore()
	store.uploadErr = errors.New("access denied")
	svc = newTestBackup(store, staticSnapshotter{"portfolio": "{}"}, "portfolio")
	keys, err := svc.Backup(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.Empty(t, keys)
}

func TestBackupKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	assert.Equal(t, "ledger/2024-01-02/abc.json", BackupKey(ts, "abc"))
}

func TestBackupService_ListAndRotate(t *testing.T) {
	store := newMemoryStore()
	for _, key := range []string{
		"ledger/2024-03-14/a.json",
		"ledger/2024-03-01/b.json",
		"ledger/2024-01-10/c.json",
		"ledger/2024-01-05/d.json",
		"ledger/2023-12-01/e.json",
		"ledger/not-a-date/f.json",
		"ledger/2024-01-01/readme.txt",
	} {
		store.objects[key] = []byte("{}")
	}
	svc := newTestBackup(store, staticSnapshotter{}, "portfolio")

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 5)
	assert.Equal(t, "ledger/2024-03-14/a.json", backups[0].Key)
	assert.Equal(t, "ledger/2023-12-01/e.json", backups[4].Key)

	deleted, err := svc.RotateOldBackups(context.Background(), 30)
	require.NoError(t, err)
	// c is older than the cutoff but among the newest three
	assert.Equal(t, 2, deleted)
	assert.Contains(t, store.objects, "ledger/2024-01-10/c.json")
	assert.NotContains(t, store.objects, "ledger/2024-01-05/d.json")
	assert.NotContains(t, store.objects, "ledger/2023-12-01/e.json")
}

func TestBackupService_RotateKeepsEverythingWithoutRetention(t *testing.T) {
	store := newMemoryStore()
	for i := 1; i <= 6; i++ {
		store.objects[fmt.Sprintf("ledger/2020-01-0%d/x.json", i)] = []byte("{}")
	}
	svc := newTestBackup(store, staticSnapshotter{}, "portfolio")

	deleted, err := svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 6)
}

func TestBackupJob_Run(t *testing.T) {
	store := newMemoryStore()
	svc := newTestBackup(store, staticSnapshotter{"portfolio": "{}"}, "portfolio")
	job := NewBackupJob(svc, 30)

	assert.Equal(t, "ledger_backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.objects, 1)
}
