package table

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/metrics"
	"github.com/utxoarchive/archive/internal/storage"
)

// NoMap is the generic unindexed table: a contiguous array of elements
// addressed only by link, with no head file and no chaining. Used by
// input, output, ins, outs and other satellite tables that are always
// reached via a link already known from a parent record, addressed
// directly with no lookup of their own.
type NoMap[T any] struct {
	name  string
	body  *manager.Manager
	link  linkage.Width
	codec Codec[T]
}

// NewNoMap builds a NoMap over bodyFile. name labels this table's
// metrics.
func NewNoMap[T any](name string, bodyFile storage.Storage, link linkage.Width, codec Codec[T]) *NoMap[T] {
	stride := codec.Size
	if stride != manager.SlabSize {
		stride = codec.Size
	}
	return &NoMap[T]{name: name, body: manager.New(bodyFile, link, stride), link: link, codec: codec}
}

func (n *NoMap[T]) Verify() error { return n.body.Verify() }
func (n *NoMap[T]) Enabled() bool { return true }
func (n *NoMap[T]) Count() uint64 { return n.body.Count() }

func (n *NoMap[T]) elementSize(value T) int {
	if !n.body.IsSlab() {
		return n.codec.Size
	}
	return len(n.codec.Marshal(value))
}

// Allocate reserves n records (or n bytes, for slab tables).
func (n *NoMap[T]) Allocate(count uint64) (linkage.Link, bool) { return n.body.Allocate(count) }

// Put writes value at a preallocated link.
func (n *NoMap[T]) Put(link linkage.Link, value T) error {
	payload := n.codec.Marshal(value)
	acc, err := n.body.GetCapacity(link)
	if err != nil {
		return err
	}
	defer acc.Release()
	if len(acc.Bytes()) < len(payload) {
		return errcode.ErrCorrupt
	}
	copy(acc.Bytes(), payload)
	metrics.RecordPut(n.name)
	return errcode.Wrap(n.body.Fault(), "nomap: put")
}

// PutNext allocates space for value, writes it, and returns the
// assigned link — the common case for append-only satellite records
// (each input/output gets the next sequential slot).
func (n *NoMap[T]) PutNext(value T) (linkage.Link, error) {
	size := n.elementSize(value)
	units := uint64(1)
	if n.body.IsSlab() {
		units = uint64(size)
	}
	link, ok := n.Allocate(units)
	if !ok {
		return n.link.Terminal(), errcode.Wrap(n.body.Fault(), "nomap: allocate")
	}
	if err := n.Put(link, value); err != nil {
		return n.link.Terminal(), err
	}
	return link, nil
}

// PutRange writes a contiguous run of values starting at link, record
// by record, for tables where the caller already reserved a span (used
// when writing a transaction's full input or output set in one batch).
func (n *NoMap[T]) PutRange(link linkage.Link, values []T) error {
	if n.body.IsSlab() {
		cur := link
		for _, v := range values {
			if err := n.Put(cur, v); err != nil {
				return err
			}
			cur = n.body.Advance(cur, len(n.codec.Marshal(v)))
		}
		return nil
	}
	cur := link
	for _, v := range values {
		if err := n.Put(cur, v); err != nil {
			return err
		}
		cur = n.body.Advance(cur, n.codec.Size)
	}
	return nil
}

// Get reads the element stored at link.
func (n *NoMap[T]) Get(link linkage.Link) (T, error) {
	var zero T
	metrics.RecordGet(n.name)
	acc, err := n.body.Get(link)
	if err != nil {
		return zero, err
	}
	defer acc.Release()
	if acc.Empty() {
		metrics.RecordMiss(n.name)
		return zero, errcode.ErrNotFound
	}
	value, _, err := n.codec.Unmarshal(acc.Bytes())
	if err != nil {
		return zero, err
	}
	return value, nil
}

// GetRange reads count consecutive elements starting at link.
func (n *NoMap[T]) GetRange(link linkage.Link, count int) ([]T, error) {
	out := make([]T, 0, count)
	cur := link
	for i := 0; i < count; i++ {
		acc, err := n.body.Get(cur)
		if err != nil {
			return out, err
		}
		value, consumed, err := n.codec.Unmarshal(acc.Bytes())
		acc.Release()
		if err != nil {
			return out, err
		}
		out = append(out, value)
		if n.body.IsSlab() {
			cur = n.body.Advance(cur, consumed)
		} else {
			cur = n.body.Advance(cur, n.codec.Size)
		}
	}
	return out, nil
}

// ForEach walks every element from link 0 to the current extent,
// calling fn with each link and decoded value. fn returns false to stop
// early. Used by brute-force scans (get_spenders) over tables with no
// reverse index.
func (n *NoMap[T]) ForEach(fn func(link linkage.Link, value T) (bool, error)) error {
	limit := n.body.Count()
	cur := linkage.Link(0)
	for uint64(cur) < limit {
		acc, err := n.body.Get(cur)
		if err != nil {
			return err
		}
		if acc.Empty() {
			return nil
		}
		value, consumed, err := n.codec.Unmarshal(acc.Bytes())
		acc.Release()
		if err != nil {
			return err
		}
		cont, err := fn(cur, value)
		if err != nil || !cont {
			return err
		}
		cur = n.body.Advance(cur, consumed)
	}
	return nil
}

// Terminal returns this table's terminal link sentinel.
func (n *NoMap[T]) Terminal() linkage.Link { return n.link.Terminal() }
