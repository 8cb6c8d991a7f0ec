package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/utxoarchive/archive/domain"
	"github.com/utxoarchive/archive/internal/keys"
)

// The JSON wire shapes below exist only for archivectl's push-header and
// push-block commands: domain.Header/Block carry fixed-size hash arrays
// that default JSON encoding would render as arrays of small integers,
// so operator-facing input uses hex strings instead.

type headerJSON struct {
	Hash       string `json:"hash"`
	Parent     string `json:"parent"`
	Version    uint32 `json:"version"`
	Time       uint32 `json:"time"`
	Bits       uint32 `json:"bits"`
	Nonce      uint32 `json:"nonce"`
	MerkleRoot string `json:"merkle_root"`
	Height     uint32 `json:"height"`
	MTP        uint32 `json:"mtp"`
	Milestone  bool   `json:"milestone"`
}

type pointJSON struct {
	Hash  string `json:"hash"`
	Index uint32 `json:"index"`
}

type inputJSON struct {
	Previous pointJSON `json:"previous"`
	Script   string    `json:"script"`
	Witness  string    `json:"witness"`
	Sequence uint32    `json:"sequence"`
}

type outputJSON struct {
	Value  uint64 `json:"value"`
	Script string `json:"script"`
}

type transactionJSON struct {
	Hash        string       `json:"hash"`
	Version     uint32       `json:"version"`
	Locktime    uint32       `json:"locktime"`
	Coinbase    bool         `json:"coinbase"`
	WitlessSize uint32       `json:"witless_size"`
	WitnessSize uint32       `json:"witness_size"`
	Inputs      []inputJSON  `json:"inputs"`
	Outputs     []outputJSON `json:"outputs"`
}

type blockJSON struct {
	Header       headerJSON        `json:"header"`
	Transactions []transactionJSON `json:"transactions"`
}

func parseHash32(s string) (keys.Hash32, error) {
	var h keys.Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid hash %q: want %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

func parseHexBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

func toDomainHeader(h headerJSON) (domain.Header, error) {
	var out domain.Header
	hash, err := parseHash32(h.Hash)
	if err != nil {
		return out, err
	}
	parent, err := parseHash32(h.Parent)
	if err != nil {
		return out, err
	}
	merkleRoot, err := parseHash32(h.MerkleRoot)
	if err != nil {
		return out, err
	}
	return domain.Header{
		Hash:       hash,
		Parent:     parent,
		Version:    h.Version,
		Time:       h.Time,
		Bits:       h.Bits,
		Nonce:      h.Nonce,
		MerkleRoot: merkleRoot,
		Height:     h.Height,
		MTP:        h.MTP,
		Milestone:  h.Milestone,
	}, nil
}

func toDomainTransaction(t transactionJSON) (domain.Transaction, error) {
	var out domain.Transaction
	hash, err := parseHash32(t.Hash)
	if err != nil {
		return out, err
	}
	inputs := make([]domain.Input, len(t.Inputs))
	for i, in := range t.Inputs {
		prevHash, err := parseHash32(in.Previous.Hash)
		if err != nil {
			return out, fmt.Errorf("input %d: %w", i, err)
		}
		script, err := parseHexBytes(in.Script)
		if err != nil {
			return out, fmt.Errorf("input %d: %w", i, err)
		}
		witness, err := parseHexBytes(in.Witness)
		if err != nil {
			return out, fmt.Errorf("input %d: %w", i, err)
		}
		inputs[i] = domain.Input{
			Previous: domain.Point{Hash: prevHash, Index: in.Previous.Index},
			Script:   script,
			Witness:  witness,
			Sequence: in.Sequence,
		}
	}
	outputs := make([]domain.Output, len(t.Outputs))
	for i, o := range t.Outputs {
		script, err := parseHexBytes(o.Script)
		if err != nil {
			return out, fmt.Errorf("output %d: %w", i, err)
		}
		outputs[i] = domain.Output{Value: o.Value, Script: script}
	}
	return domain.Transaction{
		Hash:        hash,
		Version:     t.Version,
		Locktime:    t.Locktime,
		Coinbase:    t.Coinbase,
		WitlessSize: t.WitlessSize,
		WitnessSize: t.WitnessSize,
		Inputs:      inputs,
		Outputs:     outputs,
	}, nil
}

func toDomainBlock(b blockJSON) (domain.Block, error) {
	var out domain.Block
	header, err := toDomainHeader(b.Header)
	if err != nil {
		return out, err
	}
	txs := make([]domain.Transaction, len(b.Transactions))
	for i, t := range b.Transactions {
		tx, err := toDomainTransaction(t)
		if err != nil {
			return out, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs[i] = tx
	}
	return domain.Block{Header: header, Transactions: txs}, nil
}

func readHeaderJSON(r io.Reader) (domain.Header, error) {
	var h headerJSON
	if err := json.NewDecoder(r).Decode(&h); err != nil {
		return domain.Header{}, fmt.Errorf("decode header json: %w", err)
	}
	return toDomainHeader(h)
}

func readBlockJSON(r io.Reader) (domain.Block, error) {
	var b blockJSON
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return domain.Block{}, fmt.Errorf("decode block json: %w", err)
	}
	return toDomainBlock(b)
}
