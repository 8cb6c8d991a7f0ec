package head

import (
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage"
)

// ArrayHead maps an integer key directly to a bucket: the key IS the
// bucket index. Used by arraymap tables: candidate, confirmed, prevout,
// filter_bk, filter_tx, txs.
type ArrayHead struct {
	base
}

var _ Lifecycle = (*ArrayHead)(nil)

// NewArrayHead builds an ArrayHead over file with the given link width
// and bucket count (the maximum addressable key + 1).
func NewArrayHead(file storage.Storage, link linkage.Width, buckets uint64) *ArrayHead {
	return &ArrayHead{base: newBase(file, link, buckets)}
}

// At returns the stored link at bucket key.
func (a *ArrayHead) At(key uint64) (linkage.Link, error) {
	return a.topAt(key)
}

// Push replaces bucket key with current and returns the link that was
// previously stored there, so callers that chain multiple entries per
// key (e.g. candidate reorg leaving a stale entry reachable) retain the
// prior value as next.
func (a *ArrayHead) Push(current linkage.Link, key uint64) (linkage.Link, error) {
	prev, err := a.topAt(key)
	if err != nil {
		return a.link.Terminal(), err
	}
	if err := a.setAt(key, current); err != nil {
		return a.link.Terminal(), err
	}
	return prev, nil
}

// Set writes link directly into bucket key, with no regard for whatever
// was there before — used to unwind a push (pop_candidate/pop_confirmed)
// back to a specific prior value instead of chaining a new one.
func (a *ArrayHead) Set(key uint64, link linkage.Link) error {
	return a.setAt(key, link)
}

// Grow extends the bucket table to at least minBuckets buckets (keys
// 0 through minBuckets-1; a no-op if it already has that many),
// filling new cells with terminal. Array-indexed tables whose key is a
// monotonically increasing height (candidate, confirmed) grow this way
// rather than being sized up front.
func (a *ArrayHead) Grow(minBuckets uint64) error {
	if minBuckets <= a.buckets {
		return nil
	}
	oldBuckets := a.buckets
	oldSize := a.headSize()
	a.buckets = minBuckets
	newSize := a.headSize()

	if _, ok := a.file.Allocate(newSize - oldSize); !ok {
		a.buckets = oldBuckets
		return a.file.Fault()
	}
	terminal := a.link.Terminal()
	for i := oldBuckets; i < minBuckets; i++ {
		if err := a.setAt(i, terminal); err != nil {
			return err
		}
	}
	return nil
}
