// Package domain holds the value types the query layer hands callers:
// a header/block/transaction/input/output view reconstructed from the
// schema tables, independent of their on-disk encoding.
package domain

import "github.com/utxoarchive/archive/internal/keys"

// Header is a block header in caller-facing form.
type Header struct {
	Hash       keys.Hash32
	Parent     keys.Hash32
	Version    uint32
	Time       uint32
	Bits       uint32
	Nonce      uint32
	MerkleRoot keys.Hash32
	Height     uint32
	MTP        uint32
	Milestone  bool
}

// Point names a previous output being spent: its owning transaction's
// hash and its output index within that transaction.
type Point struct {
	Hash  keys.Hash32
	Index uint32
}

// Input is a transaction input in caller-facing form.
type Input struct {
	Previous Point
	Script   []byte
	Witness  []byte
	Sequence uint32
}

// Output is a transaction output in caller-facing form.
type Output struct {
	Value  uint64
	Script []byte
}

// Transaction is a full transaction in caller-facing form. Hash is the
// witness-stripped identity hash the archive indexes by; WitlessSize and
// WitnessSize are the serialized byte lengths of the two encodings, both
// supplied by the caller since the wire encoder itself is out of scope.
type Transaction struct {
	Hash        keys.Hash32
	Version     uint32
	Locktime    uint32
	Coinbase    bool
	WitlessSize uint32
	WitnessSize uint32
	Inputs      []Input
	Outputs     []Output
}

// Block is a header plus its ordered transactions.
type Block struct {
	Header       Header
	Transactions []Transaction
}

// Spend identifies one recorded consumption of an output: the spending
// transaction's hash and which of its inputs consumes it.
type Spend struct {
	Spender    keys.Hash32
	InputIndex uint32
}

// Metadata augments a Point lookup with cached context used by
// maturity and confirmability checks (populate_with_metadata, spec
// section 4.9).
type Metadata struct {
	Coinbase          bool
	ParentBlockHeight uint32
	OutputValue       uint64
}
