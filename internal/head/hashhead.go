package head

import (
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage"
)

// HashHead maps a search key to a bucket via UniqueHash(key) mod buckets
// (buckets is a power of two, so the mod reduces to a mask). Used by
// hashmap tables: header, point, tx, strong_tx, address, validated_bk,
// validated_tx.
type HashHead struct {
	base
}

var _ Lifecycle = (*HashHead)(nil)

// NewHashHead builds a HashHead over file with the given link width and
// bucket count. buckets must be a power of two (or zero to disable).
func NewHashHead(file storage.Storage, link linkage.Width, buckets uint64) *HashHead {
	return &HashHead{base: newBase(file, link, buckets)}
}

// Index computes the bucket for key: unique_hash(key) & (buckets - 1).
func (h *HashHead) Index(key []byte) uint64 {
	if h.buckets == 0 {
		return 0
	}
	return keys.UniqueHash(key) & (h.buckets - 1)
}

// Top returns the head link for key's bucket.
func (h *HashHead) Top(key []byte) (linkage.Link, error) {
	return h.topAt(h.Index(key))
}

// Push atomically copies the current top of key's bucket into next's
// return value and stores current into the bucket: the bucket cell
// moves from pointing at the prior top to pointing at current, and
// current's own next field becomes the prior top. Called once per
// insertion, after the element itself has been written to the body.
func (h *HashHead) Push(current linkage.Link, key []byte) (linkage.Link, error) {
	bucket := h.Index(key)
	next, err := h.topAt(bucket)
	if err != nil {
		return h.link.Terminal(), err
	}
	if err := h.setAt(bucket, current); err != nil {
		return h.link.Terminal(), err
	}
	return next, nil
}
