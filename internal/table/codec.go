// Package table implements the three generic table flavors tables are
// built from: hashmap (open-chained, hashed), arraymap (key-is-index),
// and nomap (append-only, no index). Each is parameterized over a
// element payload type T via a Codec describing its wire format (spec
// sections 4.6-4.7).
package table

// Codec describes how to serialize/deserialize a table's payload type T.
// Size is the fixed payload byte length for record tables, or
// manager.SlabSize for variable-length slab tables, in which case
// Marshal/Unmarshal must agree on how to recover an element's length
// from its own encoding (length-prefix, inner count fields, etc).
type Codec[T any] struct {
	Size      int
	Marshal   func(T) []byte
	Unmarshal func([]byte) (T, int, error) // returns value, bytes consumed, error
}
