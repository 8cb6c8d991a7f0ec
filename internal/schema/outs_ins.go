package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// LinkCodec builds a fixed-size record Codec over a bare link value,
// the encoding used by the ins/outs per-transaction index arrays: each
// record is nothing but one link into the input/output slab table.
func LinkCodec(w linkage.Width) table.Codec[linkage.Link] {
	size := int(w)
	return table.Codec[linkage.Link]{
		Size: size,
		Marshal: func(v linkage.Link) []byte {
			buf := make([]byte, size)
			w.Put(buf, v)
			return buf
		},
		Unmarshal: func(buf []byte) (linkage.Link, int, error) {
			if len(buf) < size {
				return w.Terminal(), 0, errcode.ErrCorrupt
			}
			return w.Get(buf[:size]), size, nil
		},
	}
}

// OutsCodec / InsCodec are the ins/outs array record codecs, addressing
// the output and input slab tables respectively.
func OutsCodec() table.Codec[linkage.Link] { return LinkCodec(OutputLinkWidth) }
func InsCodec() table.Codec[linkage.Link]  { return LinkCodec(InputLinkWidth) }
