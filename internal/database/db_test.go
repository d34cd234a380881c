package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString_Profiles(t *testing.T) {
	ledger := BuildConnectionString("/data/ledger.db", ProfileLedger)
	assert.Contains(t, ledger, "/data/ledger.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")

	cache := BuildConnectionString("/data/cache.db", ProfileCache)
	assert.Contains(t, cache, "synchronous(OFF)")
	assert.Contains(t, cache, "temp_store(MEMORY)")

	mem := BuildConnectionString("file:test?mode=memory", ProfileStandard)
	assert.Contains(t, mem, "file:test?mode=memory&_pragma=journal_mode(WAL)")
}

func TestNew_MigratesEmbeddedSchemas(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"ledger", "cache"} {
		db, err := New(Config{Path: filepath.Join(dir, name+".db"), Profile: ProfileStandard, Name: name})
		require.NoError(t, err)
		require.NoError(t, db.Migrate())
		// Idempotent
		require.NoError(t, db.Migrate())
		require.NoError(t, db.HealthCheck(t.Context()))
		require.NoError(t, db.Close())
	}
}

func TestApplySchema_UnknownName(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	assert.Error(t, ApplySchema(conn, "nope"))
}

func TestWithTransaction(t *testing.T) {
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	_, err = conn.Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	err = WithTransaction(conn, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (v) VALUES (1)")
		return err
	})
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = WithTransaction(conn, func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (v) VALUES (2)")
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	err = WithTransaction(conn, func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (v) VALUES (3)")
		panic("unexpected")
	})
	assert.ErrorContains(t, err, "panic in transaction")

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}
