package ledger

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Emit(module string, data events.EventData) {
	m.Called(module, data)
}

func newFileService(t *testing.T, mode CostBlendMode) (*Service, *FileStore) {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewService(store, mode, nil, zerolog.Nop()), store
}

func TestService_LoadMigratesLegacyAndPersists(t *testing.T) {
	svc, store := newFileService(t, CostBlendUnknownAsZero)
	require.NoError(t, os.WriteFile(store.Path("portfolio"), []byte(`{"BBCA.JK": 10, "TLKM.JK": 5}`), 0o644))
	ctx := context.Background()

	l, warnings, err := svc.Load(ctx, "portfolio")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"BBCA.JK", "TLKM.JK"}, l.Tickers())

	migrated, err := os.ReadFile(store.Path("portfolio"))
	require.NoError(t, err)
	assert.Contains(t, string(migrated), `"lots": 10`)
	assert.Contains(t, string(migrated), `"average_cost": null`)

	// Second load is a no-op: the file is not rewritten.
	before, err := os.Stat(store.Path("portfolio"))
	require.NoError(t, err)
	decoded, err := store.Load(ctx, "portfolio")
	require.NoError(t, err)
	assert.False(t, decoded.Migrated)

	l2, _, err := svc.Load(ctx, "portfolio")
	require.NoError(t, err)
	after, err := os.ReadFile(store.Path("portfolio"))
	require.NoError(t, err)
	assert.Equal(t, string(migrated), string(after))
	stat, err := os.Stat(store.Path("portfolio"))
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), stat.ModTime())
	assert.Equal(t, l.Positions(), l2.Positions())
}

func TestService_MalformedStateYieldsEmptyLedgerAndWarning(t *testing.T) {
	svc, store := newFileService(t, CostBlendUnknownAsZero)
	require.NoError(t, os.WriteFile(store.Path("portfolio"), []byte(`{"BBCA.JK": {"lots": "x"`), 0o644))

	l, warnings, err := svc.Load(context.Background(), "portfolio")

	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnMalformedPersistedState, warnings[0].Code)
	assert.Contains(t, warnings[0].Message, ".corrupt")
}

func TestService_AddOrUpdatePersistsAndEmits(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	pub := new(mockPublisher)
	pub.On("Emit", "ledger", mock.AnythingOfType("*events.LedgerChangedData")).Return()
	svc := NewService(store, CostBlendUnknownAsZero, pub, zerolog.Nop())
	ctx := context.Background()

	_, _, err = svc.AddOrUpdate(ctx, "portfolio", "AAA", 10, dec(1000), nil)
	require.NoError(t, err)
	pos, warnings, err := svc.AddOrUpdate(ctx, "portfolio", "AAA", 10, dec(2000), nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, int64(20), pos.Lots)

	l, _, err := svc.Load(ctx, "portfolio")
	require.NoError(t, err)
	saved, ok := l.Get("AAA")
	require.True(t, ok)
	assert.Equal(t, "1500", saved.AverageCost.String())
	pub.AssertNumberOfCalls(t, "Emit", 2)
}

func TestService_RemoveMissingTickerIsNotFound(t *testing.T) {
	svc, _ := newFileService(t, CostBlendUnknownAsZero)
	ctx := context.Background()
	_, _, err := svc.AddOrUpdate(ctx, "portfolio", "AAA", 1, nil, nil)
	require.NoError(t, err)

	_, err = svc.Remove(ctx, "portfolio", "ZZZ")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Remove(ctx, "portfolio", "AAA")
	require.NoError(t, err)
	l, _, err := svc.Load(ctx, "portfolio")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestService_ConcurrentUpdatesAreNotLost(t *testing.T) {
	svc, _ := newFileService(t, CostBlendUnknownAsZero)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.AddOrUpdate(ctx, "portfolio", "BBRI.JK", 1, dec(5000), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	l, _, err := svc.Load(ctx, "portfolio")
	require.NoError(t, err)
	p, ok := l.Get("BBRI.JK")
	require.True(t, ok)
	assert.Equal(t, int64(writers), p.Lots)
	assert.Equal(t, "5000", p.AverageCost.String())
}

func TestService_ClearAndSnapshot(t *testing.T) {
	svc, _ := newFileService(t, CostBlendUnknownAsZero)
	ctx := context.Background()
	_, _, err := svc.AddOrUpdate(ctx, "portfolio", "AAA", 2, dec(10), nil)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "portfolio")
	require.NoError(t, err)
	assert.Contains(t, string(snap), `"AAA"`)

	_, err = svc.Clear(ctx, "portfolio")
	require.NoError(t, err)
	snap, err = svc.Snapshot(ctx, "portfolio")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(snap))
}
