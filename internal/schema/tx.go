package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// TxLinkWidth is the tx table's own link width, and the width used
// wherever another table stores a tx_fk (strong_tx, prevout's
// ancestry).
const TxLinkWidth = linkage.Width(4)

// OutsFkWidth / InsFkWidth are the link widths of the per-transaction
// output/input index arrays.
const (
	OutsFkWidth = linkage.Width(5)
	InsFkWidth  = linkage.Width(5)
)

// OutputLinkWidth / InputLinkWidth are the link widths of the output
// and input slab tables themselves.
const (
	OutputLinkWidth = linkage.Width(4)
	InputLinkWidth  = linkage.Width(4)
)

// Tx is the archive's transaction record. InsFk and OutsFk point into
// the per-transaction ins/outs index arrays, each a contiguous run of
// InsCount/OutsCount links into the input/output slab tables.
type Tx struct {
	Coinbase    bool
	WitlessSize uint32 // 24-bit: serialized size excluding witness data
	WitnessSize uint32 // 24-bit: serialized size including witness data
	Locktime    uint32
	Version     uint32
	InsCount    uint32 // 24-bit
	OutsCount   uint32 // 24-bit
	InsFk       linkage.Link
	OutsFk      linkage.Link
}

// TxCodec marshals a Tx to its fixed 31-byte record layout.
func TxCodec() table.Codec[Tx] {
	const size = 1 + 3 + 3 + 4 + 4 + 3 + 3 + int(InsFkWidth) + int(OutsFkWidth)
	return table.Codec[Tx]{
		Size: size,
		Marshal: func(tx Tx) []byte {
			buf := make([]byte, size)
			off := 0
			if tx.Coinbase {
				buf[off] = 1
			}
			off++
			putUint24(buf[off:], tx.WitlessSize)
			off += 3
			putUint24(buf[off:], tx.WitnessSize)
			off += 3
			le.PutUint32(buf[off:], tx.Locktime)
			off += 4
			le.PutUint32(buf[off:], tx.Version)
			off += 4
			putUint24(buf[off:], tx.InsCount)
			off += 3
			putUint24(buf[off:], tx.OutsCount)
			off += 3
			InsFkWidth.Put(buf[off:off+int(InsFkWidth)], tx.InsFk)
			off += int(InsFkWidth)
			OutsFkWidth.Put(buf[off:off+int(OutsFkWidth)], tx.OutsFk)
			return buf
		},
		Unmarshal: func(buf []byte) (Tx, int, error) {
			var tx Tx
			if len(buf) < size {
				return tx, 0, errcode.ErrCorrupt
			}
			off := 0
			tx.Coinbase = buf[off] != 0
			off++
			tx.WitlessSize = getUint24(buf[off:])
			off += 3
			tx.WitnessSize = getUint24(buf[off:])
			off += 3
			tx.Locktime = le.Uint32(buf[off:])
			off += 4
			tx.Version = le.Uint32(buf[off:])
			off += 4
			tx.InsCount = getUint24(buf[off:])
			off += 3
			tx.OutsCount = getUint24(buf[off:])
			off += 3
			tx.InsFk = InsFkWidth.Get(buf[off : off+int(InsFkWidth)])
			off += int(InsFkWidth)
			tx.OutsFk = OutsFkWidth.Get(buf[off : off+int(OutsFkWidth)])
			return tx, size, nil
		},
	}
}
