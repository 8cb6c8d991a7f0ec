package schema

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// AddressLinkWidth is the address table's own link width. The table
// itself is an optional index, gated off when unconfigured.
const AddressLinkWidth = linkage.Width(4)

// AddressEntry is one output reachable under a script hash; a hash
// typically chains many entries (every output ever paid to that
// address).
type AddressEntry struct {
	OutputFk uint32
}

// AddressCodec marshals AddressEntry as a bare output_fk.
func AddressCodec() table.Codec[AddressEntry] {
	const size = 4
	return table.Codec[AddressEntry]{
		Size: size,
		Marshal: func(e AddressEntry) []byte {
			buf := make([]byte, size)
			le.PutUint32(buf, e.OutputFk)
			return buf
		},
		Unmarshal: func(buf []byte) (AddressEntry, int, error) {
			if len(buf) < size {
				return AddressEntry{}, 0, errcode.ErrCorrupt
			}
			return AddressEntry{OutputFk: le.Uint32(buf)}, size, nil
		},
	}
}

// PostingsCache memoizes the full set of output_fk values chained under
// a script hash as a roaring bitmap, so a popular address (thousands of
// payments) answers a repeat membership query without re-walking its
// hashmap chain, using github.com/RoaringBitmap/roaring for compact
// set storage. Entries are built lazily on first query and invalidated
// on new writes to that hash.
type PostingsCache struct {
	mu       sync.Mutex
	postings map[keys.Hash32]*roaring.Bitmap
}

// NewPostingsCache builds an empty cache.
func NewPostingsCache() *PostingsCache {
	return &PostingsCache{postings: make(map[keys.Hash32]*roaring.Bitmap)}
}

// Fill replaces the cached postings for hash with outputFks, called
// once after a full chain walk.
func (c *PostingsCache) Fill(hash keys.Hash32, outputFks []uint32) *roaring.Bitmap {
	bm := roaring.New()
	for _, fk := range outputFks {
		bm.Add(fk)
	}
	c.mu.Lock()
	c.postings[hash] = bm
	c.mu.Unlock()
	return bm
}

// Lookup returns the cached postings for hash, if present.
func (c *PostingsCache) Lookup(hash keys.Hash32) (*roaring.Bitmap, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bm, ok := c.postings[hash]
	return bm, ok
}

// Invalidate drops hash's cached postings after a new write, forcing
// the next query to rebuild them from the chain.
func (c *PostingsCache) Invalidate(hash keys.Hash32) {
	c.mu.Lock()
	delete(c.postings, hash)
	c.mu.Unlock()
}
