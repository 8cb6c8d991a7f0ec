// Package manager computes record/slab addressing over a body Storage:
// bounds, allocation and truncation in terms of table elements rather
// than raw bytes.
package manager

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/storage"
)

// SlabSize is the ElementSize sentinel selecting slab (variable-size,
// byte-addressed) element semantics rather than fixed-size records.
const SlabSize = -1

// Manager addresses a body Storage in units of table elements. For
// record tables (Stride > 0) link units are record indexes; for slab
// tables (Stride == SlabSize) link units are raw byte offsets.
type Manager struct {
	body   storage.Storage
	link   linkage.Width
	stride int // record byte stride, or SlabSize for slabs
}

// New builds a Manager. stride is link width + key size + payload size
// for record tables, or SlabSize for slab tables (payload size is
// recovered per-element by the table's own reader).
func New(body storage.Storage, link linkage.Width, stride int) *Manager {
	return &Manager{body: body, link: link, stride: stride}
}

// IsSlab reports whether this manager addresses a slab (byte-addressed)
// body rather than a fixed-stride record body.
func (m *Manager) IsSlab() bool { return m.stride == SlabSize }

// Stride returns the fixed record byte stride; only meaningful when
// !IsSlab().
func (m *Manager) Stride() int { return m.stride }

// Count returns the logical element count: size()/stride for records,
// size() for slabs.
func (m *Manager) Count() uint64 {
	size := m.body.Size()
	if m.IsSlab() {
		return size
	}
	return size / uint64(m.stride)
}

// Allocate reserves room for chunks elements (records) or chunks bytes
// (slabs - callers pass the exact byte length they are about to write)
// and returns the start link, or terminal on overflow of the table's
// link width.
func (m *Manager) Allocate(chunks uint64) (linkage.Link, bool) {
	byteLen := chunks
	if !m.IsSlab() {
		byteLen = chunks * uint64(m.stride)
	}
	offset, ok := m.body.Allocate(byteLen)
	if !ok {
		return m.link.Terminal(), false
	}
	link := m.offsetToLink(offset)
	if !m.link.Fits(link) {
		return m.link.Terminal(), false
	}
	return link, true
}

// offsetToLink converts a byte offset into the link unit for this
// manager's element kind.
func (m *Manager) offsetToLink(offset uint64) linkage.Link {
	if m.IsSlab() {
		return linkage.Link(offset)
	}
	return linkage.Link(offset / uint64(m.stride))
}

// linkToOffset converts a link back to a byte offset.
func (m *Manager) linkToOffset(link linkage.Link) uint64 {
	if m.IsSlab() {
		return uint64(link)
	}
	return uint64(link) * uint64(m.stride)
}

// Truncate reverts the body to the extent implied by logical (element
// count for records, byte count for slabs). Only ever shrinks.
func (m *Manager) Truncate(logical uint64) error {
	byteLen := logical
	if !m.IsSlab() {
		byteLen = logical * uint64(m.stride)
	}
	return m.body.Truncate(byteLen)
}

// Get returns a storage accessor positioned at link's byte offset, or an
// empty accessor when link is terminal.
func (m *Manager) Get(link linkage.Link) (storage.Accessor, error) {
	if m.link.IsTerminal(link) {
		return storage.Accessor{}, nil
	}
	return m.body.Get(m.linkToOffset(link))
}

// GetCapacity is Get's counterpart over unpublished (allocated but not
// yet size-published) capacity, used by multi-phase set/commit writers.
func (m *Manager) GetCapacity(link linkage.Link) (storage.Accessor, error) {
	if m.link.IsTerminal(link) {
		return storage.Accessor{}, nil
	}
	return m.body.GetCapacity(m.linkToOffset(link))
}

// Advance returns the link that follows link: n bytes further on for
// slab tables, and always the next record for record tables, where n is
// ignored. Used to step through a contiguous run of elements written by
// PutRange/GetRange.
func (m *Manager) Advance(link linkage.Link, n int) linkage.Link {
	if m.IsSlab() {
		return linkage.Link(uint64(link) + uint64(n))
	}
	return link + 1
}

// Verify checks that the body's current size is a valid extent for this
// manager's element kind: an exact multiple of the record stride for
// records, any size for slabs.
func (m *Manager) Verify() error {
	if m.IsSlab() {
		return nil
	}
	if m.body.Size()%uint64(m.stride) != 0 {
		return errcode.Wrapf(errcode.ErrCorrupt, "manager: body size %d not a multiple of stride %d", m.body.Size(), m.stride)
	}
	return nil
}

// Fault forwards the body storage's sticky fault.
func (m *Manager) Fault() error { return m.body.Fault() }
