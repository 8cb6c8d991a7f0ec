package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/table"
)

// TxsLinkWidth is the txs table's own link width, used for its slab
// body addressing.
const TxsLinkWidth = linkage.Width(5)

// Txs is the ordered set of transaction links belonging to one block,
// keyed by header_fk in an arraymap.
type Txs struct {
	Tx []linkage.Link
}

// TxsCodec marshals Txs as count:3 | size:3 | tx_fk[count]*4.
func TxsCodec() table.Codec[Txs] {
	return table.Codec[Txs]{
		Size: manager.SlabSize,
		Marshal: func(t Txs) []byte {
			body := len(t.Tx) * int(TxLinkWidth)
			buf := make([]byte, 6+body)
			putUint24(buf[0:3], uint32(len(t.Tx)))
			putUint24(buf[3:6], uint32(body))
			off := 6
			for _, link := range t.Tx {
				TxLinkWidth.Put(buf[off:off+int(TxLinkWidth)], link)
				off += int(TxLinkWidth)
			}
			return buf
		},
		Unmarshal: func(buf []byte) (Txs, int, error) {
			var t Txs
			if len(buf) < 6 {
				return t, 0, errcode.ErrCorrupt
			}
			count := getUint24(buf[0:3])
			size := getUint24(buf[3:6])
			if uint32(len(buf)) < 6+size {
				return t, 0, errcode.ErrCorrupt
			}
			t.Tx = make([]linkage.Link, 0, count)
			off := 6
			for i := uint32(0); i < count; i++ {
				t.Tx = append(t.Tx, TxLinkWidth.Get(buf[off:off+int(TxLinkWidth)]))
				off += int(TxLinkWidth)
			}
			return t, 6 + int(size), nil
		},
	}
}
