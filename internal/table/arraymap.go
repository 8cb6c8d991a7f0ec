package table

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/element"
	"github.com/utxoarchive/archive/internal/head"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/metrics"
	"github.com/utxoarchive/archive/internal/storage"
)

// ArrayMap is the generic array-indexed table: the key IS the bucket
// index (no hashing), and an ArrayHead cell holds the link to the most
// recently pushed element for that key. Elements carry no stored key,
// only a leading next field, so a key's history is the chain reachable
// from its bucket (spec section 4.7). Used by candidate, confirmed,
// prevout, filter_bk, filter_tx and txs.
type ArrayMap[T any] struct {
	name  string
	head  *head.ArrayHead
	body  *manager.Manager
	link  linkage.Width
	codec Codec[T]
}

// NewArrayMap builds an ArrayMap over headFile/bodyFile with buckets
// addressable keys [0, buckets). name labels this table's metrics.
func NewArrayMap[T any](name string, headFile, bodyFile storage.Storage, link linkage.Width, buckets uint64, codec Codec[T]) *ArrayMap[T] {
	stride := codec.Size
	if stride != manager.SlabSize {
		stride = int(link) + codec.Size
	}
	return &ArrayMap[T]{
		name:  name,
		head:  head.NewArrayHead(headFile, link, buckets),
		body:  manager.New(bodyFile, link, stride),
		link:  link,
		codec: codec,
	}
}

func (a *ArrayMap[T]) Create() error { return a.head.Create() }
func (a *ArrayMap[T]) Close() error  { return a.head.Close() }

func (a *ArrayMap[T]) Verify() error {
	if err := a.head.Verify(); err != nil {
		return err
	}
	return a.body.Verify()
}

// Backup publishes the current body element count into the head
// without releasing any storage handle, the same step Close takes.
func (a *ArrayMap[T]) Backup() error {
	return a.head.SetBodyCount(a.body.Count())
}

// Restore truncates the body back to the head's last published count.
func (a *ArrayMap[T]) Restore() error {
	count, err := a.head.BodyCount()
	if err != nil {
		return err
	}
	return a.body.Truncate(count)
}

func (a *ArrayMap[T]) Enabled() bool { return a.head.Enabled() }

// BodyCount / SetBodyCount round-trip the head's leading count field.
func (a *ArrayMap[T]) BodyCount() (uint64, error)      { return a.head.BodyCount() }
func (a *ArrayMap[T]) SetBodyCount(count uint64) error { return a.head.SetBodyCount(count) }

// Grow extends the bucket table to at least minBuckets buckets.
func (a *ArrayMap[T]) Grow(minBuckets uint64) error { return a.head.Grow(minBuckets) }

// Buckets returns the current addressable key count.
func (a *ArrayMap[T]) Buckets() uint64 { return a.head.Buckets() }

func (a *ArrayMap[T]) chain(key uint64) (*element.Iterator, error) {
	top, err := a.head.At(key)
	if err != nil {
		return nil, err
	}
	return element.New(bodyGetter{a.body}, a.link, top, nil, 0), nil
}

// Exists reports whether key has at least one element.
func (a *ArrayMap[T]) Exists(key uint64) (bool, error) {
	it, err := a.chain(key)
	if err != nil {
		return false, err
	}
	return it.Advance()
}

// Top returns the link most recently pushed for key.
func (a *ArrayMap[T]) Top(key uint64) (linkage.Link, error) { return a.head.At(key) }

// It returns every link under key, newest-first.
func (a *ArrayMap[T]) It(key uint64) ([]linkage.Link, error) {
	it, err := a.chain(key)
	if err != nil {
		return nil, err
	}
	out, err := it.All()
	metrics.RecordChainWalkDepth(a.name, it.Steps())
	return out, err
}

func (a *ArrayMap[T]) elementSize(value T) int {
	if !a.body.IsSlab() {
		return a.codec.Size
	}
	return len(a.codec.Marshal(value))
}

func (a *ArrayMap[T]) encode(next linkage.Link, value T) []byte {
	payload := a.codec.Marshal(value)
	buf := make([]byte, int(a.link)+len(payload))
	a.link.Put(buf[:a.link], next)
	copy(buf[a.link:], payload)
	return buf
}

// Allocate reserves n records (or n bytes, for slab tables).
func (a *ArrayMap[T]) Allocate(n uint64) (linkage.Link, bool) { return a.body.Allocate(n) }

// Put writes value at a preallocated link and splices it atop key's
// bucket, returning the link it displaced (the new element's next).
func (a *ArrayMap[T]) Put(link linkage.Link, key uint64, value T) (linkage.Link, error) {
	next, err := a.head.Push(link, key)
	if err != nil {
		return a.link.Terminal(), err
	}
	encoded := a.encode(next, value)
	acc, err := a.body.GetCapacity(link)
	if err != nil {
		return a.link.Terminal(), err
	}
	defer acc.Release()
	if len(acc.Bytes()) < len(encoded) {
		return a.link.Terminal(), errcode.ErrCorrupt
	}
	copy(acc.Bytes(), encoded)
	metrics.RecordPut(a.name)
	return next, errcode.Wrap(a.body.Fault(), "arraymap: put")
}

// PutKey allocates, writes and links value under key in one step,
// returning the assigned link.
func (a *ArrayMap[T]) PutKey(key uint64, value T) (linkage.Link, error) {
	size := a.elementSize(value)
	units := uint64(1)
	if a.body.IsSlab() {
		units = uint64(size)
	}
	link, ok := a.Allocate(units)
	if !ok {
		return a.link.Terminal(), errcode.Wrap(a.body.Fault(), "arraymap: allocate")
	}
	if _, err := a.Put(link, key, value); err != nil {
		return a.link.Terminal(), err
	}
	return link, nil
}

// Replace overwrites key's bucket head in place with link, WITHOUT
// chaining (discarding any prior value). The candidate/confirmed push
// path chains with Put instead and does not call Replace.
func (a *ArrayMap[T]) Replace(link linkage.Link, key uint64, value T) error {
	encoded := a.encode(a.link.Terminal(), value)
	acc, err := a.body.GetCapacity(link)
	if err != nil {
		return err
	}
	defer acc.Release()
	if len(acc.Bytes()) < len(encoded) {
		return errcode.ErrCorrupt
	}
	copy(acc.Bytes(), encoded)
	if _, err := a.head.Push(link, key); err != nil {
		return err
	}
	metrics.RecordPut(a.name)
	return errcode.Wrap(a.body.Fault(), "arraymap: replace")
}

// Get reads the element stored at link.
func (a *ArrayMap[T]) Get(link linkage.Link) (T, bool, error) {
	var zero T
	if a.link.IsTerminal(link) {
		return zero, false, nil
	}
	metrics.RecordGet(a.name)
	acc, err := a.body.Get(link)
	if err != nil {
		return zero, false, err
	}
	defer acc.Release()
	if acc.Empty() {
		metrics.RecordMiss(a.name)
		return zero, false, nil
	}
	raw := acc.Bytes()
	if len(raw) < int(a.link) {
		return zero, false, errcode.ErrCorrupt
	}
	value, _, err := a.codec.Unmarshal(raw[a.link:])
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// GetAt reads the head element for key, if any.
func (a *ArrayMap[T]) GetAt(key uint64) (T, bool, error) {
	link, err := a.head.At(key)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return a.Get(link)
}

// Next reads the stored next field of the element at link, the link
// that was displaced when link was pushed — used to unwind a push back
// to its predecessor (pop_candidate/pop_confirmed).
func (a *ArrayMap[T]) Next(link linkage.Link) (linkage.Link, error) {
	acc, err := a.body.Get(link)
	if err != nil {
		return a.link.Terminal(), err
	}
	defer acc.Release()
	if acc.Empty() || len(acc.Bytes()) < int(a.link) {
		return a.link.Terminal(), errcode.ErrCorrupt
	}
	return a.link.Get(acc.Bytes()[:a.link]), nil
}

// Unwind sets key's bucket directly to link, bypassing Push's chaining —
// the pop-side counterpart of Put, restoring whatever value Next reports
// as the predecessor of the entry being removed.
func (a *ArrayMap[T]) Unwind(key uint64, link linkage.Link) error {
	return a.head.Set(key, link)
}

// Terminal returns this table's terminal link sentinel.
func (a *ArrayMap[T]) Terminal() linkage.Link { return a.link.Terminal() }

// Count returns the logical element count.
func (a *ArrayMap[T]) Count() uint64 { return a.body.Count() }
