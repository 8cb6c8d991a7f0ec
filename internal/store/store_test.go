package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/config"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/schema"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	small := config.TableConfig{Buckets: 16, Size: 4096}
	return config.Config{
		Directory:      t.TempDir(),
		FileGrowthRate: 0.5,
		IntervalDepth:  0xff,
		Header:         small,
		Point:          small,
		Tx:             small,
		Txs:            small,
		Candidate:      small,
		Confirmed:      small,
		StrongTx:       small,
		Prevout:        small,
		ValidatedBk:    small,
		ValidatedTx:    small,
	}
}

func TestStoreOpenCloseRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, nil)
	require.NoError(t, s.Open())
	require.NotEqual(t, s.SessionID().String(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, s.Close())

	s2 := New(cfg, nil)
	require.NoError(t, s2.Open(), "a clean close must leave the next open non-dirty")
	require.NoError(t, s2.Close())
}

func TestStoreBackupRestore(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, nil)
	require.NoError(t, s.Open())
	defer s.Close()

	key := make([]byte, 32)
	key[0] = 1
	_, err := s.Header.PutKey(key, schema.Header{Height: 1})
	require.NoError(t, err)
	require.NoError(t, s.Backup())
	require.EqualValues(t, 1, s.Header.Count())

	key2 := make([]byte, 32)
	key2[0] = 2
	_, err = s.Header.PutKey(key2, schema.Header{Height: 2})
	require.NoError(t, err)
	require.EqualValues(t, 2, s.Header.Count())

	require.NoError(t, s.Restore())
	require.EqualValues(t, 1, s.Header.Count())

	got, ok, err := s.Header.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, got.Height)
}

func TestStoreOpenDetectsDirtyFlushLock(t *testing.T) {
	cfg := testConfig(t)
	s := New(cfg, nil)
	require.NoError(t, s.Open())

	// Simulate a crash: the flush_lock sentinel is never removed because
	// Close is never called. Release the exclusive lock by hand so a
	// fresh Store can reopen the same directory.
	require.NoError(t, s.exclusiveLock.Unlock())

	s2 := New(cfg, nil)
	err := s2.Open()
	require.True(t, errors.Is(err, errcode.ErrDirty))
	require.NoError(t, s2.Restore())
	require.NoError(t, s2.Close())
}
