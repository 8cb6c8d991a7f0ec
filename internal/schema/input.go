package schema

import (
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/table"
)

// Input is a transaction's spend of a previous output: the unlocking
// script and witness, sequence, and a point_fk + index pair naming the
// previous output's owning transaction via the point registry rather
// than a repeated 32-byte hash.
type Input struct {
	Script     []byte
	Witness    []byte
	Sequence   uint32
	PointFk    uint32 // point table link, truncated to this table's varint field
	PointIndex uint32
	ParentFk   uint32 // tx_fk of the spending transaction
}

// InputCodec marshals an Input as a slab: varint-length script, witness,
// sequence, point_fk, point_index, parent_fk.
func InputCodec() table.Codec[Input] {
	return table.Codec[Input]{
		Size: manager.SlabSize,
		Marshal: func(in Input) []byte {
			buf := make([]byte, 0, len(in.Script)+len(in.Witness)+20)
			buf = appendVarBytes(buf, in.Script)
			buf = appendVarBytes(buf, in.Witness)
			buf = appendUvarint(buf, uint64(in.Sequence))
			buf = appendUvarint(buf, uint64(in.PointFk))
			buf = appendUvarint(buf, uint64(in.PointIndex))
			buf = appendUvarint(buf, uint64(in.ParentFk))
			return buf
		},
		Unmarshal: func(buf []byte) (Input, int, error) {
			var in Input
			off := 0
			script, n, err := readVarBytes(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			witness, n, err := readVarBytes(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			seq, n, err := readUvarint(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			pointFk, n, err := readUvarint(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			pointIdx, n, err := readUvarint(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			parentFk, n, err := readUvarint(buf[off:])
			if err != nil {
				return in, 0, err
			}
			off += n
			in.Script = script
			in.Witness = witness
			in.Sequence = uint32(seq)
			in.PointFk = uint32(pointFk)
			in.PointIndex = uint32(pointIdx)
			in.ParentFk = uint32(parentFk)
			return in, off, nil
		},
	}
}
