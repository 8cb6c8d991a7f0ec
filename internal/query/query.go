// Package query implements the archive's read/write surface atop
// internal/store: reconstructing domain.Header/Block/Transaction values
// from the schema tables, maintaining the candidate/confirmed chain
// views, and answering confirmability, maturity and merkle-proof
// queries. Every exported method here is a caller-facing operation;
// internal/store and internal/schema know nothing about the UTXO
// domain model above the byte layout.
package query

import (
	"sync"

	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/schema"
	"github.com/utxoarchive/archive/internal/store"
)

// chainTop tracks the current tip height of a height-indexed arraymap
// (candidate or confirmed). The underlying table has no notion of "top
// of stack" of its own — only per-height cells — so push/pop maintain
// it here, recovered on first use by probing downward from the table's
// allocated bucket count.
type chainTop struct {
	mu    sync.Mutex
	known bool
	top   uint32
}

// Archive is the query layer's handle onto one open Store. It adds four
// bounded caches on top of the store's tables: a small header cache
// (immutable once written, so never invalidated), a merkle
// interval-root cache keyed by waypoint height, and the strong/confirmed
// membership caches below.
type Archive struct {
	store *store.Store

	headerCache *lru.Cache[linkage.Link, schema.Header]
	intervals   *lru.Cache[uint64, keys.Hash32]

	// strongCache and confirmedCache back IsStrongTx/strongBlock and
	// IsConfirmedBlock with a bounded membership cache, so a hot
	// transaction or block doesn't pay a strong_tx/confirmed table
	// round trip on every confirmability check.
	strongCache    *lru.Cache[linkage.Link, strongState]
	confirmedCache *lru.Cache[linkage.Link, bool]

	candidateTop chainTop
	confirmedTop chainTop

	locatorMu    sync.Mutex
	locatorIndex *btree.BTree

	addressPostings *schema.PostingsCache
}

// strongState is the cached result of a strong_tx lookup: the block
// that last asserted the transaction, and whether that assertion is
// currently positive.
type strongState struct {
	blockFk linkage.Link
	strong  bool
}

// heightLink is the google/btree Item backing the confirmed
// height->link locator index: an in-memory ordered cache populated
// lazily as heights are queried, so repeated locator construction
// doesn't re-walk the confirmed arraymap for heights it already knows.
type heightLink struct {
	height uint32
	link   linkage.Link
}

func (h heightLink) Less(than btree.Item) bool { return h.height < than.(heightLink).height }

// New wraps an opened Store with the query layer's caches.
func New(s *store.Store) *Archive {
	// lru.New only errors for a non-positive size, which none of these
	// fixed sizes ever trigger; a nil cache degrades to always-miss
	// rather than panic.
	headerCache, err := lru.New[linkage.Link, schema.Header](4096)
	if err != nil {
		headerCache = nil
	}
	intervals, err := lru.New[uint64, keys.Hash32](1024)
	if err != nil {
		intervals = nil
	}
	strongCache, err := lru.New[linkage.Link, strongState](4096)
	if err != nil {
		strongCache = nil
	}
	confirmedCache, err := lru.New[linkage.Link, bool](4096)
	if err != nil {
		confirmedCache = nil
	}
	return &Archive{
		store:          s,
		headerCache:    headerCache,
		intervals:      intervals,
		strongCache:    strongCache,
		confirmedCache: confirmedCache,
		locatorIndex:   btree.New(32),
	}
}

// Store returns the underlying table store, for callers (CLI, tests)
// that need lifecycle operations (Open/Close/Flush/WriteGuard).
func (a *Archive) Store() *store.Store { return a.store }

func (a *Archive) getHeaderRecord(fk linkage.Link) (schema.Header, bool, error) {
	if a.headerCache != nil {
		if h, ok := a.headerCache.Get(fk); ok {
			return h, true, nil
		}
	}
	h, ok, err := a.store.Header.Get(fk)
	if err != nil || !ok {
		return schema.Header{}, ok, err
	}
	if a.headerCache != nil {
		a.headerCache.Add(fk, h)
	}
	return h, true, nil
}

func hashFromBytes(b []byte) keys.Hash32 {
	var h keys.Hash32
	copy(h[:], b)
	return h
}

func indexOfLink(links []linkage.Link, target linkage.Link) (int, bool) {
	for i, l := range links {
		if l == target {
			return i, true
		}
	}
	return 0, false
}

var errShortInterval = errcode.Wrap(errcode.ErrNotFound, "query: interval not available")
