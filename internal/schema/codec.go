// Package schema instantiates the generic table flavors in
// internal/table with the concrete payload types and wire layouts of
// the archive's entity, index, cache and optional tables. Each file
// here owns one entity's Go struct, its byte layout, and the Codec
// that bridges the two to a table.HashMap, table.ArrayMap or
// table.NoMap.
package schema

import (
	"encoding/binary"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
)

// putUint24 / getUint24 round-trip a 3-byte little-endian field, the
// packed width used for heights and several foreign keys throughout the
// schema.
func putUint24(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}

func getUint24(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}

// linkBytes/linkValue encode/decode a linkage.Link through a table's
// named foreign-key width, used whenever one schema table stores
// another table's link as a field.
func linkBytes(w linkage.Width, v linkage.Link) []byte {
	buf := make([]byte, w)
	w.Put(buf, v)
	return buf
}

func linkValue(w linkage.Width, buf []byte) (linkage.Link, error) {
	if len(buf) < int(w) {
		return w.Terminal(), errcode.ErrCorrupt
	}
	return w.Get(buf[:w]), nil
}

var le = binary.LittleEndian

// appendVarBytes appends data to buf prefixed with its length as a
// varint, the encoding slab tables (output/input scripts and witnesses,
// filter bodies) use for their variable-length fields.
func appendVarBytes(buf []byte, data []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(data)))
	buf = append(buf, lenBuf[:n]...)
	return append(buf, data...)
}

// readVarBytes reads a varint-length-prefixed byte slice from buf,
// returning the slice, the total bytes consumed, and an error if buf is
// too short or the length is corrupt.
func readVarBytes(buf []byte) ([]byte, int, error) {
	length, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, 0, errcode.ErrCorrupt
	}
	end := n + int(length)
	if end > len(buf) {
		return nil, 0, errcode.ErrCorrupt
	}
	return buf[n:end], end, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func readUvarint(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, errcode.ErrCorrupt
	}
	return v, n, nil
}
