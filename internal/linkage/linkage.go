// Package linkage implements the fixed-width little-endian link integers
// used to chain elements within a table body and to address buckets in a
// table head. A link's all-ones value is reserved as terminal ("none" or
// end of chain).
package linkage

import "fmt"

// Link is a logical record number or byte offset, depending on the owning
// table's element kind (record vs slab).
type Link uint64

// Width is the number of bytes used to serialize a Link for a given table.
// Valid widths are 1..8; the schema package uses 3, 4 and 5.
type Width uint8

// Terminal returns the reserved sentinel value for width w: all bits set
// within the w-byte field.
func (w Width) Terminal() Link {
	if w >= 8 {
		return Link(^uint64(0))
	}
	return Link(uint64(1)<<(8*uint(w)) - 1)
}

// Max returns the largest addressable, non-terminal link for width w.
func (w Width) Max() Link {
	return w.Terminal() - 1
}

// Fits reports whether v can be addressed by a field of width w, i.e. it is
// strictly less than the terminal sentinel.
func (w Width) Fits(v Link) bool {
	return v < w.Terminal()
}

// IsTerminal reports whether v is the terminal sentinel for width w.
func (w Width) IsTerminal(v Link) bool {
	return v == w.Terminal()
}

// Put writes v into buf[:w] little-endian. buf must be at least w bytes.
func (w Width) Put(buf []byte, v Link) {
	for i := Width(0); i < w; i++ {
		buf[i] = byte(v >> (8 * uint(i)))
	}
}

// Get reads a w-byte little-endian link from buf[:w].
func (w Width) Get(buf []byte) Link {
	var v Link
	for i := Width(0); i < w; i++ {
		v |= Link(buf[i]) << (8 * uint(i))
	}
	return v
}

// Encode returns a freshly allocated w-byte little-endian encoding of v.
func (w Width) Encode(v Link) []byte {
	buf := make([]byte, w)
	w.Put(buf, v)
	return buf
}

// Validate returns an error if count exceeds w.Max(), the largest
// non-terminal link value.
func (w Width) Validate(count uint64) error {
	if Link(count) > w.Max() {
		return fmt.Errorf("linkage: width %d bytes cannot address %d elements (max %d)", w, count, w.Max())
	}
	return nil
}

// Size returns int(w), for callers composing struct strides.
func (w Width) Size() int { return int(w) }
