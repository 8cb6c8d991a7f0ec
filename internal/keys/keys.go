// Package keys defines the fixed-width search keys stored in hashmap
// elements (block hashes, shortened point keys, heights) and the bucket
// hash used to select a hashhead bucket from a key.
package keys

import "github.com/cespare/xxhash/v2"

// Hash32 is a full 32-byte digest (block hash, transaction hash).
type Hash32 [32]byte

// Bytes returns a slice view over h.
func (h Hash32) Bytes() []byte { return h[:] }

// Key7 is the shortened point key libbitcoin uses to keep the point
// table's hashmap key narrow (full tx hashes collide rarely enough at 7
// bytes that the trailing chain walk resolves the remainder).
type Key7 [7]byte

func (k Key7) Bytes() []byte { return k[:] }

// ShortenHash truncates a full hash to its leading 7 bytes.
func ShortenHash(h Hash32) Key7 {
	var k Key7
	copy(k[:], h[:len(k)])
	return k
}

// Height3 is a 24-bit block height used as the search key for
// height-indexed arraymaps (candidate, confirmed).
type Height3 [3]byte

func (h Height3) Bytes() []byte { return h[:] }

// NewHeight3 encodes a height as a little-endian 24-bit key. Panics if
// height exceeds the 24-bit range, which the caller must have already
// checked (arraymap bucket counts are bounded long before this).
func NewHeight3(height uint32) Height3 {
	if height > 0xffffff {
		panic("keys: height exceeds 24-bit range")
	}
	return Height3{byte(height), byte(height >> 8), byte(height >> 16)}
}

// Uint32 decodes a Height3 back to a plain integer.
func (h Height3) Uint32() uint32 {
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16
}

// UniqueHash is the fast non-cryptographic hash used by hashhead to map
// a search key to a bucket index. It is never used as a replacement for
// key equality: buckets collide and the element chain walk resolves
// collisions by comparing the full stored key.
func UniqueHash(key []byte) uint64 {
	return xxhash.Sum64(key)
}
