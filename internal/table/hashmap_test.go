package table

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage/storagetest"
)

func u32Codec() Codec[uint32] {
	return Codec[uint32]{
		Size: 4,
		Marshal: func(v uint32) []byte {
			buf := make([]byte, 4)
			binary.LittleEndian.PutUint32(buf, v)
			return buf
		},
		Unmarshal: func(b []byte) (uint32, int, error) {
			return binary.LittleEndian.Uint32(b), 4, nil
		},
	}
}

func newTestHashMap(t *testing.T) *HashMap[uint32] {
	t.Helper()
	headFile := storagetest.New()
	bodyFile := storagetest.New()
	require.NoError(t, headFile.Open())
	require.NoError(t, bodyFile.Open())
	h := NewHashMap[uint32]("test_hash", headFile, bodyFile, linkage.Width(4), 16, 7, u32Codec())
	require.NoError(t, h.Create())
	return h
}

func TestHashMapPutGet(t *testing.T) {
	h := newTestHashMap(t)
	key := make([]byte, 7)
	copy(key, "abcdefg")

	link, err := h.PutKey(key, 100)
	require.NoError(t, err)

	got, ok, err := h.Get(link)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 100, got)

	exists, err := h.Exists(key)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestHashMapDuplicateKeysChain(t *testing.T) {
	h := newTestHashMap(t)
	key := make([]byte, 7)
	copy(key, "dupekey")

	l1, err := h.PutKey(key, 1)
	require.NoError(t, err)
	l2, err := h.PutKey(key, 2)
	require.NoError(t, err)

	links, err := h.It(key)
	require.NoError(t, err)
	require.Equal(t, []linkage.Link{l2, l1}, links)

	first, ok, err := h.First(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, l2, first)
}

func TestHashMapSetCommit(t *testing.T) {
	h := newTestHashMap(t)
	key := make([]byte, 7)
	copy(key, "staged!")

	link, ok := h.Allocate(1)
	require.True(t, ok)
	require.NoError(t, h.Set(link, key, 42))

	exists, err := h.Exists(key)
	require.NoError(t, err)
	require.False(t, exists, "uncommitted element must not be visible via head lookup")

	require.NoError(t, h.Commit(link, key))

	got, ok, err := h.Get(link)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, got)

	exists, err = h.Exists(key)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestHashMapMissingKey(t *testing.T) {
	h := newTestHashMap(t)
	key := make([]byte, 7)
	copy(key, "missing")

	exists, err := h.Exists(key)
	require.NoError(t, err)
	require.False(t, exists)
}

// TestHashMapBackupRestore exercises the body_count round trip spec
// section 4.6 describes: restore truncates the body back to whatever
// count backup last published, discarding any later writes' elements
// even though their bucket links (already committed to the head) are
// left dangling past the truncated extent -- restore undoes the body,
// not the head.
func TestHashMapBackupRestore(t *testing.T) {
	h := newTestHashMap(t)
	key := make([]byte, 7)
	copy(key, "kept000")
	_, err := h.PutKey(key, 1)
	require.NoError(t, err)

	require.NoError(t, h.Backup())
	require.EqualValues(t, 1, h.Count())

	_, err = h.PutKey(key, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, h.Count())

	require.NoError(t, h.Restore())
	require.EqualValues(t, 1, h.Count())

	got, ok, err := h.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, got, "only the backed-up element survives restore")
}
