package element

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/storage/storagetest"
)

// chain writes n 8-byte records, each one's leading 4 bytes pointing at
// the previous record (terminal for the first), mirroring a hashmap
// bucket's newest-first chain, and returns the newest record's link.
func chain(t *testing.T, m *manager.Manager, n int) linkage.Link {
	t.Helper()
	prev := linkage.Width(4).Terminal()
	var link linkage.Link
	for i := 0; i < n; i++ {
		var ok bool
		link, ok = m.Allocate(1)
		require.True(t, ok)
		acc, err := m.GetCapacity(link)
		require.NoError(t, err)
		linkage.Width(4).Put(acc.Bytes()[:4], prev)
		acc.Release()
		require.NoError(t, m.Fault())
		prev = link
	}
	return link
}

func TestIteratorStepsCountsHops(t *testing.T) {
	body := storagetest.New()
	require.NoError(t, body.Open())
	m := manager.New(body, linkage.Width(4), 8)

	head := chain(t, m, 5)

	it := New(m, linkage.Width(4), head, nil, 0)
	ok, err := it.Advance()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, it.Steps())

	_, err = it.All()
	require.NoError(t, err)
	require.EqualValues(t, 5, it.Steps())
}

func TestIteratorExhaustedOnEmptyChain(t *testing.T) {
	body := storagetest.New()
	require.NoError(t, body.Open())
	m := manager.New(body, linkage.Width(4), 8)

	it := New(m, linkage.Width(4), linkage.Width(4).Terminal(), nil, 0)
	ok, err := it.Advance()
	require.NoError(t, err)
	require.False(t, ok)
	require.True(t, it.Exhausted())
	require.EqualValues(t, 0, it.Steps())
}
