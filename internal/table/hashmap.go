package table

import (
	"bytes"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/element"
	"github.com/utxoarchive/archive/internal/head"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/metrics"
	"github.com/utxoarchive/archive/internal/storage"
)

// HashMap is the generic hashed table: open-chained buckets in a
// HashHead, record or slab elements in a body Manager. T is the
// payload type; duplicate keys are permitted and order within a
// bucket is insertion-order newest-first.
type HashMap[T any] struct {
	name    string
	head    *head.HashHead
	body    *manager.Manager
	link    linkage.Width
	keySize int
	codec   Codec[T]
}

// NewHashMap builds a HashMap over headFile/bodyFile. keySize is the
// fixed stored-key width; codec.Size is either the fixed record payload
// size or manager.SlabSize for variable-length slabs. name labels this
// table's metrics.
func NewHashMap[T any](name string, headFile, bodyFile storage.Storage, link linkage.Width, buckets uint64, keySize int, codec Codec[T]) *HashMap[T] {
	stride := codec.Size
	if stride != manager.SlabSize {
		stride = int(link) + keySize + codec.Size
	}
	return &HashMap[T]{
		name:    name,
		head:    head.NewHashHead(headFile, link, buckets),
		body:    manager.New(bodyFile, link, stride),
		link:    link,
		keySize: keySize,
		codec:   codec,
	}
}

// Create initializes the head for an empty table; the body is not
// touched.
func (h *HashMap[T]) Create() error {
	return h.head.Create()
}

// Close closes the head's storage; the body storage is not closed here.
func (h *HashMap[T]) Close() error {
	if err := h.head.Close(); err != nil {
		return err
	}
	return nil
}

// Verify checks head size and body extent are structurally consistent.
func (h *HashMap[T]) Verify() error {
	if err := h.head.Verify(); err != nil {
		return err
	}
	return h.body.Verify()
}

// Backup publishes the current body element count into the head, the
// same step Close takes, without releasing any storage handle — used
// to checkpoint a live store so a later restore has somewhere to
// truncate back to.
func (h *HashMap[T]) Backup() error {
	return h.head.SetBodyCount(h.body.Count())
}

// Restore truncates the body back to the head's last published count,
// discarding any record a crash left appended but never counted.
func (h *HashMap[T]) Restore() error {
	count, err := h.head.BodyCount()
	if err != nil {
		return err
	}
	return h.body.Truncate(count)
}

// Enabled reports true iff buckets > 0 and, for record elements, the
// body size is a multiple of the record stride (spec section 4.6).
func (h *HashMap[T]) Enabled() bool {
	if !h.head.Enabled() {
		return false
	}
	if h.body.IsSlab() {
		return true
	}
	return h.body.Verify() == nil
}

// BodyCount / SetBodyCount round-trip the head's leading count field.
func (h *HashMap[T]) BodyCount() (uint64, error)      { return h.head.BodyCount() }
func (h *HashMap[T]) SetBodyCount(count uint64) error { return h.head.SetBodyCount(count) }

func keyMatcher(keySize int, linkWidth linkage.Width, key []byte) element.Matcher {
	return func(raw []byte) bool {
		start := int(linkWidth)
		end := start + keySize
		if len(raw) < end {
			return false
		}
		n := keySize
		if len(key) < n {
			n = len(key)
		}
		return bytes.Equal(raw[start:start+n], key[:n])
	}
}

// chain returns an iterator starting at key's bucket head.
func (h *HashMap[T]) chain(key []byte) (*element.Iterator, error) {
	top, err := h.head.Top(key)
	if err != nil {
		return nil, err
	}
	return element.New(bodyGetter{h.body}, h.link, top, keyMatcher(h.keySize, h.link, key), 0), nil
}

type bodyGetter struct{ m *manager.Manager }

func (b bodyGetter) Get(link linkage.Link) (storage.Accessor, error) { return b.m.Get(link) }

// Exists reports whether an element keyed by key is present.
func (h *HashMap[T]) Exists(key []byte) (bool, error) {
	it, err := h.chain(key)
	if err != nil {
		return false, err
	}
	return it.Advance()
}

// First returns the link of the first (most recently inserted) element
// matching key, or the table's terminal link with ok=false if none.
func (h *HashMap[T]) First(key []byte) (linkage.Link, bool, error) {
	it, err := h.chain(key)
	if err != nil {
		return h.link.Terminal(), false, err
	}
	ok, err := it.Advance()
	metrics.RecordChainWalkDepth(h.name, it.Steps())
	if err != nil || !ok {
		return h.link.Terminal(), false, err
	}
	return it.Self(), true, nil
}

// It returns every link matching key, newest-first.
func (h *HashMap[T]) It(key []byte) ([]linkage.Link, error) {
	it, err := h.chain(key)
	if err != nil {
		return nil, err
	}
	out, err := it.All()
	metrics.RecordChainWalkDepth(h.name, it.Steps())
	return out, err
}

// elementSize returns the byte length of element's on-disk payload
// encoding, used to size allocation for both record and slab elements.
func (h *HashMap[T]) elementSize(value T) int {
	if !h.body.IsSlab() {
		return h.codec.Size
	}
	return len(h.codec.Marshal(value))
}

func (h *HashMap[T]) encode(key []byte, next linkage.Link, value T) []byte {
	payload := h.codec.Marshal(value)
	buf := make([]byte, int(h.link)+h.keySize+len(payload))
	h.link.Put(buf[:h.link], next)
	copy(buf[int(h.link):int(h.link)+h.keySize], key)
	copy(buf[int(h.link)+h.keySize:], payload)
	return buf
}

// Allocate reserves n records (or n bytes, for slab tables) and returns
// the starting link.
func (h *HashMap[T]) Allocate(n uint64) (linkage.Link, bool) {
	return h.body.Allocate(n)
}

// Set writes value at a preallocated link and key, WITHOUT linking it
// into the head yet (multi-phase publishing; pair with Commit).
func (h *HashMap[T]) Set(link linkage.Link, key []byte, value T) error {
	encoded := h.encode(key, h.link.Terminal(), value)
	acc, err := h.body.GetCapacity(link)
	if err != nil {
		return err
	}
	defer acc.Release()
	if len(acc.Bytes()) < len(encoded) {
		return errcode.ErrCorrupt
	}
	copy(acc.Bytes(), encoded)
	return errcode.Wrap(h.body.Fault(), "hashmap: set")
}

// Commit links a previously Set record into the head: splices current
// atop key's bucket (terminal->current, current->bucket).
func (h *HashMap[T]) Commit(link linkage.Link, key []byte) error {
	next, err := h.head.Push(link, key)
	if err != nil {
		return err
	}
	// Rewrite the element's next field now that the true predecessor is
	// known (it was written as terminal by Set).
	acc, err := h.body.GetCapacity(link)
	if err != nil {
		return err
	}
	defer acc.Release()
	if len(acc.Bytes()) < int(h.link) {
		return errcode.ErrCorrupt
	}
	h.link.Put(acc.Bytes()[:h.link], next)
	metrics.RecordPut(h.name)
	return errcode.Wrap(h.body.Fault(), "hashmap: commit")
}

// Put writes element at a preallocated link and key, then immediately
// links it into the head.
func (h *HashMap[T]) Put(link linkage.Link, key []byte, value T) error {
	next, err := h.head.Push(link, key)
	if err != nil {
		return err
	}
	encoded := h.encode(key, next, value)
	acc, err := h.body.GetCapacity(link)
	if err != nil {
		return err
	}
	defer acc.Release()
	if len(acc.Bytes()) < len(encoded) {
		return errcode.ErrCorrupt
	}
	copy(acc.Bytes(), encoded)
	metrics.RecordPut(h.name)
	return errcode.Wrap(h.body.Fault(), "hashmap: put")
}

// PutKey allocates, writes and links value under key in one step,
// returning the assigned link.
func (h *HashMap[T]) PutKey(key []byte, value T) (linkage.Link, error) {
	size := h.elementSize(value)
	units := uint64(1)
	if h.body.IsSlab() {
		units = uint64(size)
	}
	link, ok := h.Allocate(units)
	if !ok {
		return h.link.Terminal(), errcode.Wrap(h.body.Fault(), "hashmap: allocate")
	}
	if err := h.Put(link, key, value); err != nil {
		return h.link.Terminal(), err
	}
	return link, nil
}

// Get reads the element stored at link.
func (h *HashMap[T]) Get(link linkage.Link) (T, bool, error) {
	var zero T
	if h.link.IsTerminal(link) {
		return zero, false, nil
	}
	metrics.RecordGet(h.name)
	acc, err := h.body.Get(link)
	if err != nil {
		return zero, false, err
	}
	defer acc.Release()
	if acc.Empty() {
		metrics.RecordMiss(h.name)
		return zero, false, nil
	}
	raw := acc.Bytes()
	start := int(h.link) + h.keySize
	if len(raw) < start {
		return zero, false, errcode.ErrCorrupt
	}
	value, _, err := h.codec.Unmarshal(raw[start:])
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

// GetKey returns the stored key at link.
func (h *HashMap[T]) GetKey(link linkage.Link) ([]byte, error) {
	if h.link.IsTerminal(link) {
		return nil, nil
	}
	acc, err := h.body.Get(link)
	if err != nil {
		return nil, err
	}
	defer acc.Release()
	if acc.Empty() || len(acc.Bytes()) < int(h.link)+h.keySize {
		return nil, errcode.ErrCorrupt
	}
	key := make([]byte, h.keySize)
	copy(key, acc.Bytes()[h.link:int(h.link)+h.keySize])
	return key, nil
}

// Terminal returns this table's terminal link sentinel.
func (h *HashMap[T]) Terminal() linkage.Link { return h.link.Terminal() }

// Count returns the logical element count.
func (h *HashMap[T]) Count() uint64 { return h.body.Count() }
