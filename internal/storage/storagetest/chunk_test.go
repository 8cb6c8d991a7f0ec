package storagetest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkAllocateAndGet(t *testing.T) {
	c := New()
	require.NoError(t, c.Open())

	off, ok := c.Allocate(4)
	require.True(t, ok)
	require.EqualValues(t, 0, off)

	copy(c.GetRaw(0), []byte{9, 8, 7, 6})

	acc, err := c.Get(0)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 8, 7, 6}, acc.Bytes())
}

func TestChunkFaultPropagates(t *testing.T) {
	c := New()
	require.NoError(t, c.Open())
	boom := assertError{"boom"}
	c.InjectFault(boom)

	_, err := c.Get(0)
	require.Error(t, err)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
