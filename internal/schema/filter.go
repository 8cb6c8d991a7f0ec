package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/table"
)

// FilterBkLinkWidth / FilterTxLinkWidth are the neutrino filter cache
// tables' own link widths: filter_bk is a small fixed-size record
// array, filter_tx is slab-addressed.
const (
	FilterBkLinkWidth = linkage.Width(3)
	FilterTxLinkWidth = linkage.Width(5)
)

// FilterBk is the BIP 157/158 compact filter commitment chain entry
// for a block: the filter's own hash and the running filter-header
// hash.
type FilterBk struct {
	FilterHash keys.Hash32
	FilterHead keys.Hash32
}

// FilterBkCodec marshals FilterBk as filter_hash:32 | filter_head:32.
func FilterBkCodec() table.Codec[FilterBk] {
	const size = 64
	return table.Codec[FilterBk]{
		Size: size,
		Marshal: func(f FilterBk) []byte {
			buf := make([]byte, size)
			copy(buf[0:32], f.FilterHash[:])
			copy(buf[32:64], f.FilterHead[:])
			return buf
		},
		Unmarshal: func(buf []byte) (FilterBk, int, error) {
			var f FilterBk
			if len(buf) < size {
				return f, 0, errcode.ErrCorrupt
			}
			copy(f.FilterHash[:], buf[0:32])
			copy(f.FilterHead[:], buf[32:64])
			return f, size, nil
		},
	}
}

// FilterTx is the raw compact-filter body for one block, stored
// separately from filter_bk's fixed-size commitment chain since filter
// bodies vary widely in size.
type FilterTx struct {
	Filter []byte
}

// FilterTxCodec marshals FilterTx as a varint-length-prefixed blob.
func FilterTxCodec() table.Codec[FilterTx] {
	return table.Codec[FilterTx]{
		Size: manager.SlabSize,
		Marshal: func(f FilterTx) []byte {
			return appendVarBytes(nil, f.Filter)
		},
		Unmarshal: func(buf []byte) (FilterTx, int, error) {
			data, n, err := readVarBytes(buf)
			if err != nil {
				return FilterTx{}, 0, err
			}
			return FilterTx{Filter: data}, n, nil
		},
	}
}
