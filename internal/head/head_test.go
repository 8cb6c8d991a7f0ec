package head

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage/storagetest"
)

func TestHashHeadCreateAllTerminal(t *testing.T) {
	file := storagetest.New()
	require.NoError(t, file.Open())
	h := NewHashHead(file, linkage.Width(3), 8)
	require.NoError(t, h.Create())
	require.NoError(t, h.Verify())

	count, err := h.BodyCount()
	require.NoError(t, err)
	require.Zero(t, count)

	for i := uint64(0); i < 8; i++ {
		link, err := h.topAt(i)
		require.NoError(t, err)
		require.Equal(t, linkage.Width(3).Terminal(), link)
	}
}

func TestHashHeadPushChains(t *testing.T) {
	file := storagetest.New()
	require.NoError(t, file.Open())
	h := NewHashHead(file, linkage.Width(3), 4)
	require.NoError(t, h.Create())

	key := []byte("01234567890123456789012345678901")
	next, err := h.Push(0, key)
	require.NoError(t, err)
	require.Equal(t, linkage.Width(3).Terminal(), next)

	top, err := h.Top(key)
	require.NoError(t, err)
	require.EqualValues(t, 0, top)

	next2, err := h.Push(1, key)
	require.NoError(t, err)
	require.EqualValues(t, 0, next2)

	top2, err := h.Top(key)
	require.NoError(t, err)
	require.EqualValues(t, 1, top2)
}

func TestArrayHeadAtAndPush(t *testing.T) {
	file := storagetest.New()
	require.NoError(t, file.Open())
	a := NewArrayHead(file, linkage.Width(4), 8)
	require.NoError(t, a.Create())

	term, err := a.At(3)
	require.NoError(t, err)
	require.Equal(t, linkage.Width(4).Terminal(), term)

	prev, err := a.Push(42, 3)
	require.NoError(t, err)
	require.Equal(t, linkage.Width(4).Terminal(), prev)

	got, err := a.At(3)
	require.NoError(t, err)
	require.EqualValues(t, 42, got)
}

func TestArrayHeadGrow(t *testing.T) {
	file := storagetest.New()
	require.NoError(t, file.Open())
	a := NewArrayHead(file, linkage.Width(4), 2)
	require.NoError(t, a.Create())
	require.NoError(t, a.Grow(10))
	require.EqualValues(t, 10, a.Buckets())

	got, err := a.At(9)
	require.NoError(t, err)
	require.Equal(t, linkage.Width(4).Terminal(), got)
}
