package schema

import (
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/table"
)

// Output is an unspent-or-spent transaction output: a value, its
// locking script, and the tx that owns it. Reached only
// via a link stored in the owning tx's outs array — never looked up by
// key.
type Output struct {
	Value    uint64
	Script   []byte
	ParentFk uint32 // tx_fk, truncated to fit this table's own narrow link space
}

// OutputCodec marshals an Output as a slab: value, a varint-length
// script, then parent_fk.
func OutputCodec() table.Codec[Output] {
	return table.Codec[Output]{
		Size: manager.SlabSize,
		Marshal: func(o Output) []byte {
			buf := make([]byte, 0, 8+len(o.Script)+6)
			buf = appendUvarint(buf, o.Value)
			buf = appendVarBytes(buf, o.Script)
			buf = appendUvarint(buf, uint64(o.ParentFk))
			return buf
		},
		Unmarshal: func(buf []byte) (Output, int, error) {
			var o Output
			value, n1, err := readUvarint(buf)
			if err != nil {
				return o, 0, err
			}
			script, n2, err := readVarBytes(buf[n1:])
			if err != nil {
				return o, 0, err
			}
			parent, n3, err := readUvarint(buf[n1+n2:])
			if err != nil {
				return o, 0, err
			}
			o.Value = value
			o.Script = script
			o.ParentFk = uint32(parent)
			return o, n1 + n2 + n3, nil
		},
	}
}
