package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// CandidateLinkWidth / ConfirmedLinkWidth are the candidate and
// confirmed index tables' own link widths: small record arrays, one
// header_fk per height.
const (
	CandidateLinkWidth = linkage.Width(3)
	ConfirmedLinkWidth = linkage.Width(3)
)

// HeightEntry is the payload of both candidate and confirmed: the
// header link occupying a given height on that chain view.
type HeightEntry struct {
	HeaderFk linkage.Link
}

// HeightEntryCodec is shared by candidate and confirmed.
func HeightEntryCodec() table.Codec[HeightEntry] {
	const size = int(HeaderLinkWidth)
	return table.Codec[HeightEntry]{
		Size: size,
		Marshal: func(e HeightEntry) []byte {
			buf := make([]byte, size)
			HeaderLinkWidth.Put(buf, e.HeaderFk)
			return buf
		},
		Unmarshal: func(buf []byte) (HeightEntry, int, error) {
			if len(buf) < size {
				return HeightEntry{}, 0, errcode.ErrCorrupt
			}
			return HeightEntry{HeaderFk: HeaderLinkWidth.Get(buf[:size])}, size, nil
		},
	}
}

// StrongTxLinkWidth is the strong_tx table's own link width.
const StrongTxLinkWidth = linkage.Width(4)

// strongTxBlockFkBit is the high bit of the packed 24-bit block_fk
// field, set for a strong (positive, connected-to-a-confirmed-ancestry)
// marking and clear for an unstrong one.
const strongTxBlockFkBit = uint32(1) << 23

// StrongTx records whether a transaction is currently strong — reachable
// from a confirmed or candidate chain — and which block asserted that.
type StrongTx struct {
	BlockFk linkage.Link
	Strong  bool
}

// StrongTxKey derives the 4-byte stored key for a tx link: strong_tx is
// keyed by tx_fk itself, not by the transaction's hash, mapping a tx
// link directly to its containing block link.
func StrongTxKey(txFk linkage.Link) []byte {
	buf := make([]byte, TxLinkWidth)
	TxLinkWidth.Put(buf, txFk)
	return buf
}

// StrongTxCodec marshals StrongTx as a 24-bit block_fk with the top bit
// used as the strong/unstrong marker.
func StrongTxCodec() table.Codec[StrongTx] {
	const size = 3
	return table.Codec[StrongTx]{
		Size: size,
		Marshal: func(s StrongTx) []byte {
			buf := make([]byte, size)
			packed := uint32(s.BlockFk) & (strongTxBlockFkBit - 1)
			if s.Strong {
				packed |= strongTxBlockFkBit
			}
			putUint24(buf, packed)
			return buf
		},
		Unmarshal: func(buf []byte) (StrongTx, int, error) {
			if len(buf) < size {
				return StrongTx{}, 0, errcode.ErrCorrupt
			}
			packed := getUint24(buf)
			return StrongTx{
				BlockFk: linkage.Link(packed &^ strongTxBlockFkBit),
				Strong:  packed&strongTxBlockFkBit != 0,
			}, size, nil
		},
	}
}

// PrevoutLinkWidth is the prevout table's own link width.
const PrevoutLinkWidth = linkage.Width(4)

// Prevout caches a spend's previous output so confirmability and
// maturity checks avoid a point/output/tx round trip on every input.
type Prevout struct {
	Coinbase          bool
	ParentBlockHeight uint32
	OutputFk          uint32
}

// PrevoutCodec marshals Prevout as coinbase_flag:1 | height:4 |
// output_fk:4.
func PrevoutCodec() table.Codec[Prevout] {
	const size = 1 + 4 + 4
	return table.Codec[Prevout]{
		Size: size,
		Marshal: func(p Prevout) []byte {
			buf := make([]byte, size)
			if p.Coinbase {
				buf[0] = 1
			}
			le.PutUint32(buf[1:], p.ParentBlockHeight)
			le.PutUint32(buf[5:], p.OutputFk)
			return buf
		},
		Unmarshal: func(buf []byte) (Prevout, int, error) {
			if len(buf) < size {
				return Prevout{}, 0, errcode.ErrCorrupt
			}
			return Prevout{
				Coinbase:          buf[0] != 0,
				ParentBlockHeight: le.Uint32(buf[1:]),
				OutputFk:          le.Uint32(buf[5:]),
			}, size, nil
		},
	}
}
