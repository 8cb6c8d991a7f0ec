// Package storage defines the abstract two-file (head + body) byte
// storage interface every table is built on, plus a memory-mapped
// implementation backed by golang.org/x/sys/unix.
//
// A Storage instance exposes stable addresses for reads concurrent with
// appends: Get hands out an Accessor that borrows from the current
// mapping and must be released when the caller is done with it. allocate
// and field mutations take the exclusive side of a reader/writer lock;
// concurrent readers only ever block a remap (Expand/Unload), never each
// other.
package storage

import "github.com/utxoarchive/archive/errcode"

// Storage is the abstract byte-addressable, append-only file the
// manager/head/table layers are built on. One instance addresses one
// physical file (a table's .head or .body file).
type Storage interface {
	// Open creates the backing file if absent and maps it. Open is
	// idempotent only in the sense that calling it twice on an unclosed
	// instance returns ErrClosed's complement is not guaranteed; callers
	// should Open exactly once per lifecycle.
	Open() error

	// Close unmaps and closes the file, releasing all resources. Close
	// is safe to call on an instance that failed to Open.
	Close() error

	// Load (re)establishes the memory mapping over the current file
	// size without changing logical size. Used after an external
	// Truncate (e.g. restore) to re-derive capacity.
	Load() error

	// Reload drops and re-establishes the mapping, picking up any size
	// change made by another handle to the same file (never another
	// process: the store is single-process for the lifetime of its
	// exclusive lock).
	Reload() error

	// Flush commits the mapping's dirty pages to disk (msync) and then
	// fsyncs the file.
	Flush() error

	// Unload releases the mapping without closing the file descriptor.
	Unload() error

	// Size returns the logical byte count: committed writes visible to
	// readers via Get.
	Size() uint64

	// Capacity returns the physical allocation, which may exceed Size
	// (pre-reserved growth headroom).
	Capacity() uint64

	// Allocate extends the logical size by chunk bytes and returns the
	// byte offset at which the new region begins. Returns ok=false and
	// records a fault if the new size would overflow uint64 (ErrEOF) or
	// the storage cannot be grown to hold it.
	Allocate(chunk uint64) (offset uint64, ok bool)

	// Expand grows physical capacity to at least size without
	// publishing it as logical size.
	Expand(size uint64) error

	// Reserve grows physical capacity by chunk bytes ahead of need.
	Reserve(chunk uint64) error

	// Truncate shrinks the logical size. Fails if size exceeds the
	// current logical size: the only permitted shrink direction.
	Truncate(size uint64) error

	// Get returns a shared-lock accessor over [offset, Size()). Returns
	// an empty, valid Accessor if offset >= Size().
	Get(offset uint64) (Accessor, error)

	// GetRaw returns an unlocked slice for internal, single-threaded use
	// only (e.g. within a call already holding the relevant lock).
	GetRaw(offset uint64) []byte

	// GetCapacity returns a shared-lock accessor over [offset,
	// Capacity()), used by writers populating a just-allocated region
	// before it is published via Truncate/SetBodyCount.
	GetCapacity(offset uint64) (Accessor, error)

	// Fault returns the sticky fault code, or nil if none has occurred.
	// Every table operation checks this after a read or write and
	// propagates it rather than retrying.
	Fault() error
}

// Accessor is a released-on-demand borrow of a Storage's mapped bytes.
// Readers must call Release when finished; failing to do so leaks a
// shared lock and will deadlock a subsequent Expand/Unload.
type Accessor struct {
	data    []byte
	release func()
}

// NewAccessor builds an Accessor over data, calling release on Release.
// release may be nil for accessors that do not borrow a lock (e.g. an
// empty accessor for an out-of-range offset).
func NewAccessor(data []byte, release func()) Accessor {
	return Accessor{data: data, release: release}
}

// Bytes returns the borrowed slice. The slice is only valid until
// Release is called.
func (a Accessor) Bytes() []byte { return a.data }

// Empty reports whether this accessor carries no bytes (offset was past
// the storage's logical size at the time of Get).
func (a Accessor) Empty() bool { return len(a.data) == 0 }

// Release gives up the accessor's shared lock, if any. Safe to call more
// than once or on a zero-value Accessor.
func (a Accessor) Release() {
	if a.release != nil {
		a.release()
	}
}

// checkFault is a small helper shared by implementations: wraps a sticky
// fault with a "storage: sticky fault" message, or returns nil.
func checkFault(fault error) error {
	if fault == nil {
		return nil
	}
	return errcode.Wrap(fault, "storage: sticky fault")
}
