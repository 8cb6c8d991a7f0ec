package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/manager"
	"github.com/utxoarchive/archive/internal/table"
)

// ValidatedLinkWidth is the own link width of both validated_bk and
// validated_tx, slab-addressed cache tables.
const ValidatedLinkWidth = linkage.Width(5)

// ValidatedBkKey derives validated_bk's stored key from a header link.
func ValidatedBkKey(headerFk linkage.Link) []byte {
	return linkBytes(HeaderLinkWidth, headerFk)
}

// ValidatedTxKey derives validated_tx's stored key from a tx link.
func ValidatedTxKey(txFk linkage.Link) []byte {
	return linkBytes(TxLinkWidth, txFk)
}

// ValidatedBk is the cached validation outcome for a block: an error
// code (errcode.Success on valid) plus the total fee collected, so a
// re-scan of an already-validated ancestry never re-runs consensus
// checks.
type ValidatedBk struct {
	Code byte
	Fee  uint64
}

// ValidatedBkCodec marshals ValidatedBk as code:1 | fee:varint.
func ValidatedBkCodec() table.Codec[ValidatedBk] {
	return table.Codec[ValidatedBk]{
		Size: manager.SlabSize,
		Marshal: func(v ValidatedBk) []byte {
			buf := make([]byte, 0, 10)
			buf = append(buf, v.Code)
			buf = appendUvarint(buf, v.Fee)
			return buf
		},
		Unmarshal: func(buf []byte) (ValidatedBk, int, error) {
			var v ValidatedBk
			if len(buf) < 1 {
				return v, 0, errcode.ErrCorrupt
			}
			v.Code = buf[0]
			fee, n, err := readUvarint(buf[1:])
			if err != nil {
				return v, 0, err
			}
			v.Fee = fee
			return v, 1 + n, nil
		},
	}
}

// ValidatedTx is the cached validation outcome for a transaction,
// scoped to the chain context (flags, height, median-time-past) under
// which it was checked — a transaction can be strong under one
// ancestry and not another, so context must match on reuse.
type ValidatedTx struct {
	Flags   uint32
	Height  uint32
	MTP     uint32
	Code    byte
	Fee     uint64
	Sigops  uint64
}

// ValidatedTxCodec marshals ValidatedTx as flags:4 | height:4 | mtp:4 |
// code:1 | fee:varint | sigops:varint.
func ValidatedTxCodec() table.Codec[ValidatedTx] {
	return table.Codec[ValidatedTx]{
		Size: manager.SlabSize,
		Marshal: func(v ValidatedTx) []byte {
			buf := make([]byte, 12, 12+20)
			le.PutUint32(buf[0:], v.Flags)
			le.PutUint32(buf[4:], v.Height)
			le.PutUint32(buf[8:], v.MTP)
			buf = append(buf, v.Code)
			buf = appendUvarint(buf, v.Fee)
			buf = appendUvarint(buf, v.Sigops)
			return buf
		},
		Unmarshal: func(buf []byte) (ValidatedTx, int, error) {
			var v ValidatedTx
			if len(buf) < 13 {
				return v, 0, errcode.ErrCorrupt
			}
			v.Flags = le.Uint32(buf[0:])
			v.Height = le.Uint32(buf[4:])
			v.MTP = le.Uint32(buf[8:])
			v.Code = buf[12]
			off := 13
			fee, n, err := readUvarint(buf[off:])
			if err != nil {
				return v, 0, err
			}
			off += n
			sigops, n, err := readUvarint(buf[off:])
			if err != nil {
				return v, 0, err
			}
			off += n
			v.Fee = fee
			v.Sigops = sigops
			return v, off, nil
		},
	}
}
