package schema

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// HeaderLinkWidth is the link width of the header table and of every
// foreign key that names a header record (txs index, candidate/confirmed
// entries), all grouped at 3 bytes.
const HeaderLinkWidth = linkage.Width(3)

// Header is the archive's block header record. ParentFk is the header
// link of the previous block; Flags carries
// validation-state bits independent of ValidatedBk; MilestoneFlag marks
// a checkpoint header whose ancestry is exempt from full revalidation.
type Header struct {
	ParentFk     linkage.Link
	Flags        uint32
	Height       uint32
	MTP          uint32
	Version      uint32
	Time         uint32
	Bits         uint32
	Nonce        uint32
	MerkleRoot   keys.Hash32
	MilestoneFlag bool
}

// HeaderCodec marshals a Header to its fixed 63-byte record layout.
func HeaderCodec() table.Codec[Header] {
	const size = 3 + 4 + 3 + 4 + 4 + 4 + 4 + 4 + 32 + 1
	return table.Codec[Header]{
		Size: size,
		Marshal: func(h Header) []byte {
			buf := make([]byte, size)
			off := 0
			HeaderLinkWidth.Put(buf[off:off+3], h.ParentFk)
			off += 3
			le.PutUint32(buf[off:], h.Flags)
			off += 4
			putUint24(buf[off:], h.Height)
			off += 3
			le.PutUint32(buf[off:], h.MTP)
			off += 4
			le.PutUint32(buf[off:], h.Version)
			off += 4
			le.PutUint32(buf[off:], h.Time)
			off += 4
			le.PutUint32(buf[off:], h.Bits)
			off += 4
			le.PutUint32(buf[off:], h.Nonce)
			off += 4
			copy(buf[off:off+32], h.MerkleRoot[:])
			off += 32
			if h.MilestoneFlag {
				buf[off] = 1
			}
			return buf
		},
		Unmarshal: func(buf []byte) (Header, int, error) {
			var h Header
			if len(buf) < size {
				return h, 0, errcode.ErrCorrupt
			}
			off := 0
			h.ParentFk = HeaderLinkWidth.Get(buf[off : off+3])
			off += 3
			h.Flags = le.Uint32(buf[off:])
			off += 4
			h.Height = getUint24(buf[off:])
			off += 3
			h.MTP = le.Uint32(buf[off:])
			off += 4
			h.Version = le.Uint32(buf[off:])
			off += 4
			h.Time = le.Uint32(buf[off:])
			off += 4
			h.Bits = le.Uint32(buf[off:])
			off += 4
			h.Nonce = le.Uint32(buf[off:])
			off += 4
			copy(h.MerkleRoot[:], buf[off:off+32])
			off += 32
			h.MilestoneFlag = buf[off] != 0
			return h, size, nil
		},
	}
}
