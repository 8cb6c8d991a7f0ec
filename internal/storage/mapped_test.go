package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMappedAllocateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.body")
	m := NewMapped(path, 0)
	require.NoError(t, m.Open())
	defer m.Close()

	off, ok := m.Allocate(8)
	require.True(t, ok)
	require.EqualValues(t, 0, off)

	raw := m.GetRaw(0)
	copy(raw, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	acc, err := m.Get(0)
	require.NoError(t, err)
	defer acc.Release()
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, acc.Bytes())
	require.EqualValues(t, 8, m.Size())
}

func TestMappedAllocateGrowsCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.body")
	m := NewMapped(path, 0.1)
	require.NoError(t, m.Open())
	defer m.Close()

	// Force several remaps by allocating well beyond the initial capacity.
	total := uint64(0)
	for i := 0; i < 20; i++ {
		off, ok := m.Allocate(1 << 16)
		require.True(t, ok)
		require.Equal(t, total, off)
		total += 1 << 16
	}
	require.Equal(t, total, m.Size())
	require.GreaterOrEqual(t, m.Capacity(), m.Size())
}

func TestMappedTruncateRejectsGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.body")
	m := NewMapped(path, 0)
	require.NoError(t, m.Open())
	defer m.Close()

	_, ok := m.Allocate(16)
	require.True(t, ok)
	require.NoError(t, m.Truncate(8))
	require.EqualValues(t, 8, m.Size())
	require.Error(t, m.Truncate(100))
}

func TestMappedGetPastSizeIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.body")
	m := NewMapped(path, 0)
	require.NoError(t, m.Open())
	defer m.Close()

	acc, err := m.Get(0)
	require.NoError(t, err)
	require.True(t, acc.Empty())
}

func TestMappedReopenPreservesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.body")
	m := NewMapped(path, 0)
	require.NoError(t, m.Open())
	_, ok := m.Allocate(24)
	require.True(t, ok)
	require.NoError(t, m.Flush())
	require.NoError(t, m.Close())

	m2 := NewMapped(path, 0)
	require.NoError(t, m2.Open())
	defer m2.Close()
	require.EqualValues(t, 24, m2.Size())
}
