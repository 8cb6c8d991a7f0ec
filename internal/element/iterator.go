// Package element implements the chain walk shared by hashmap and
// arraymap tables: starting from a bucket's head link, follow each
// element's leading next field until a match is found or the chain is
// exhausted at terminal.
package element

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage"
)

// Getter fetches the raw bytes of the element at link. Implemented by
// internal/manager.Manager; kept as an interface here so iterator has no
// dependency on manager's concrete type.
type Getter interface {
	Get(link linkage.Link) (storage.Accessor, error)
}

// Matcher reports whether the element's raw bytes (the full record or
// slab, including its leading next field) match the sought key. A nil
// Matcher makes every element on the chain a match, which is how
// arraymap multi-entry chains (no per-element key) are walked.
type Matcher func(raw []byte) bool

// Iterator walks a linked list of elements sharing one head bucket,
// stopping at the first element whose bytes satisfy match, or at
// terminal if none do.
type Iterator struct {
	get      Getter
	link     linkage.Width
	match    Matcher
	self     linkage.Link
	exhausted bool
	matched  bool
	maxSteps uint64
	steps    uint64
}

// New builds an Iterator starting at start (typically a bucket's head
// link) that will walk up to maxSteps elements before treating the
// chain as corrupt. maxSteps of 0 selects a generous default.
func New(get Getter, link linkage.Width, start linkage.Link, match Matcher, maxSteps uint64) *Iterator {
	if maxSteps == 0 {
		maxSteps = 1 << 32
	}
	return &Iterator{get: get, link: link, match: match, self: start, maxSteps: maxSteps}
}

// Self returns the current link; terminal once the iterator is
// exhausted.
func (it *Iterator) Self() linkage.Link { return it.self }

// Exhausted reports whether Advance has run the chain to terminal
// without a match.
func (it *Iterator) Exhausted() bool { return it.exhausted }

// Steps returns the number of elements walked so far, for callers that
// record chain-walk depth (a long chain under one bucket signals a
// collision-heavy key or an address worth a postings cache).
func (it *Iterator) Steps() uint64 { return it.steps }

// Advance walks forward from the current link until an element matches
// or the chain terminates, and returns whether a match was found. Once
// called, Self() reflects the matching link (or terminal). Calling
// Advance again resumes the search from just past the last match.
func (it *Iterator) Advance() (bool, error) {
	if it.exhausted {
		return false, nil
	}
	if it.matched {
		it.self = it.nextForAdvance()
		it.matched = false
	}
	for steps := uint64(0); ; steps++ {
		if it.link.IsTerminal(it.self) {
			it.exhausted = true
			return false, nil
		}
		if steps >= it.maxSteps {
			return false, errcode.ErrChainLoop
		}
		it.steps++
		acc, err := it.get.Get(it.self)
		if err != nil {
			return false, err
		}
		if acc.Empty() {
			acc.Release()
			it.exhausted = true
			return false, errcode.ErrCorrupt
		}
		raw := acc.Bytes()
		if len(raw) < int(it.link) {
			acc.Release()
			return false, errcode.ErrCorrupt
		}
		next := it.link.Get(raw[:it.link])
		matched := it.match == nil || it.match(raw)
		acc.Release()
		if matched {
			it.matched = true
			return true, nil
		}
		it.self = next
	}
}

// All drains the remaining chain, returning every matching link in
// newest-first order (insertion order within a bucket). Used by
// get_spenders and other multi-match readers.
func (it *Iterator) All() ([]linkage.Link, error) {
	var out []linkage.Link
	for {
		ok, err := it.Advance()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, it.self)
	}
}

// nextForAdvance reads the current element's next field so Advance can
// step past an already-matched element without re-matching it.
func (it *Iterator) nextForAdvance() linkage.Link {
	acc, err := it.get.Get(it.self)
	if err != nil || acc.Empty() {
		return it.link.Terminal()
	}
	defer acc.Release()
	raw := acc.Bytes()
	if len(raw) < int(it.link) {
		return it.link.Terminal()
	}
	return it.link.Get(raw[:it.link])
}
