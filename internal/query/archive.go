package query

import (
	"github.com/utxoarchive/archive/domain"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/schema"
)

// ToHeader resolves a block hash to its header link.
func (a *Archive) ToHeader(hash keys.Hash32) (linkage.Link, bool, error) {
	return a.store.Header.First(hash[:])
}

// ToTx resolves a transaction hash to its tx link.
func (a *Archive) ToTx(hash keys.Hash32) (linkage.Link, bool, error) {
	return a.store.Tx.First(hash[:])
}

// ToPoint resolves a transaction hash to its point link, if that
// transaction has ever been named as somebody's prevout.
func (a *Archive) ToPoint(hash keys.Hash32) (linkage.Link, bool, error) {
	return a.store.Point.First(hash[:])
}

// ToOutput resolves (tx_fk, index) to the output table link.
func (a *Archive) ToOutput(txFk linkage.Link, index uint32) (linkage.Link, error) {
	tx, ok, err := a.store.Tx.Get(txFk)
	if err != nil {
		return a.store.Output.Terminal(), err
	}
	if !ok || index >= tx.OutsCount {
		return a.store.Output.Terminal(), errcode.ErrNotFound
	}
	links, err := a.store.Outs.GetRange(tx.OutsFk, int(tx.OutsCount))
	if err != nil {
		return a.store.Output.Terminal(), err
	}
	return links[index], nil
}

// ToInput resolves (tx_fk, index) to the input table link.
func (a *Archive) ToInput(txFk linkage.Link, index uint32) (linkage.Link, error) {
	tx, ok, err := a.store.Tx.Get(txFk)
	if err != nil {
		return a.store.Input.Terminal(), err
	}
	if !ok || index >= tx.InsCount {
		return a.store.Input.Terminal(), errcode.ErrNotFound
	}
	links, err := a.store.Ins.GetRange(tx.InsFk, int(tx.InsCount))
	if err != nil {
		return a.store.Input.Terminal(), err
	}
	return links[index], nil
}

// ToSpend is an alias for ToInput: an input link IS the "spend_fk" the
// prevout table and maturity checks address a consumed output by.
func (a *Archive) ToSpend(txFk linkage.Link, index uint32) (linkage.Link, error) {
	return a.ToInput(txFk, index)
}

// ToInputTx returns the tx_fk owning the input at link.
func (a *Archive) ToInputTx(inputLink linkage.Link) (linkage.Link, error) {
	in, err := a.store.Input.Get(inputLink)
	if err != nil {
		return a.store.Tx.Terminal(), err
	}
	return linkage.Link(in.ParentFk), nil
}

// ToOutputTx returns the tx_fk owning the output at link.
func (a *Archive) ToOutputTx(outputLink linkage.Link) (linkage.Link, error) {
	out, err := a.store.Output.Get(outputLink)
	if err != nil {
		return a.store.Tx.Terminal(), err
	}
	return linkage.Link(out.ParentFk), nil
}

// SetHeader writes a header record keyed by its hash. Idempotent: a
// hash already present returns its existing link without rewriting.
// The parent hash must already be archived, except for a genesis
// header (zero parent hash), which is given the terminal parent_fk.
func (a *Archive) SetHeader(h domain.Header) (linkage.Link, error) {
	if link, ok, err := a.ToHeader(h.Hash); err != nil {
		return a.store.Header.Terminal(), err
	} else if ok {
		return link, nil
	}

	parentFk := a.store.Header.Terminal()
	var zero keys.Hash32
	if h.Parent != zero {
		link, ok, err := a.ToHeader(h.Parent)
		if err != nil {
			return a.store.Header.Terminal(), err
		}
		if !ok {
			return a.store.Header.Terminal(), errcode.Wrap(errcode.ErrNotFound, "query: set(header): parent not archived")
		}
		parentFk = link
	}

	rec := schema.Header{
		ParentFk:      parentFk,
		Height:        h.Height,
		MTP:           h.MTP,
		Version:       h.Version,
		Time:          h.Time,
		Bits:          h.Bits,
		Nonce:         h.Nonce,
		MerkleRoot:    h.MerkleRoot,
		MilestoneFlag: h.Milestone,
	}
	return a.store.Header.PutKey(h.Hash[:], rec)
}

// GetHeader reconstructs a domain.Header from its link.
func (a *Archive) GetHeader(fk linkage.Link) (domain.Header, bool, error) {
	rec, ok, err := a.getHeaderRecord(fk)
	if err != nil || !ok {
		return domain.Header{}, ok, err
	}
	hashBytes, err := a.store.Header.GetKey(fk)
	if err != nil {
		return domain.Header{}, false, err
	}
	var parentHash keys.Hash32
	if rec.ParentFk != a.store.Header.Terminal() {
		pb, err := a.store.Header.GetKey(rec.ParentFk)
		if err != nil {
			return domain.Header{}, false, err
		}
		parentHash = hashFromBytes(pb)
	}
	return domain.Header{
		Hash:       hashFromBytes(hashBytes),
		Parent:     parentHash,
		Version:    rec.Version,
		Time:       rec.Time,
		Bits:       rec.Bits,
		Nonce:      rec.Nonce,
		MerkleRoot: rec.MerkleRoot,
		Height:     rec.Height,
		MTP:        rec.MTP,
		Milestone:  rec.MilestoneFlag,
	}, true, nil
}

// resolvePoint returns the point link for hash, creating the record on
// first reference. The all-zero hash always resolves to the reserved
// null point at link 0.
func (a *Archive) resolvePoint(hash keys.Hash32) (linkage.Link, error) {
	var zero keys.Hash32
	if hash == zero {
		return linkage.Link(0), nil
	}
	if link, ok, err := a.ToPoint(hash); err != nil {
		return a.store.Point.Terminal(), err
	} else if ok {
		return link, nil
	}
	return a.store.Point.PutKey(hash[:], schema.Point{})
}

// SetTx archives a transaction: point entries for every non-null input
// prevout, then output and input records, then the tx record itself
// last, as the final publish of an otherwise-invisible write (spec
// section 4.9's write ordering). Idempotent on tx hash.
func (a *Archive) SetTx(tx domain.Transaction) (linkage.Link, error) {
	if link, ok, err := a.ToTx(tx.Hash); err != nil {
		return a.store.Tx.Terminal(), err
	} else if ok {
		return link, nil
	}

	txLink, ok := a.store.Tx.Allocate(1)
	if !ok {
		return a.store.Tx.Terminal(), errcode.Wrap(errcode.ErrFault, "query: set(tx): allocate")
	}
	txFk := uint32(txLink)

	pointFks := make([]linkage.Link, len(tx.Inputs))
	for i, in := range tx.Inputs {
		pointFk, err := a.resolvePoint(in.Previous.Hash)
		if err != nil {
			return a.store.Tx.Terminal(), err
		}
		pointFks[i] = pointFk
	}

	outLinks := make([]linkage.Link, len(tx.Outputs))
	for i, o := range tx.Outputs {
		link, err := a.store.Output.PutNext(schema.Output{Value: o.Value, Script: o.Script, ParentFk: txFk})
		if err != nil {
			return a.store.Tx.Terminal(), err
		}
		outLinks[i] = link
	}
	outsFk := a.store.Outs.Terminal()
	if len(outLinks) > 0 {
		link, ok := a.store.Outs.Allocate(uint64(len(outLinks)))
		if !ok {
			return a.store.Tx.Terminal(), errcode.Wrap(errcode.ErrFault, "query: set(tx): allocate outs")
		}
		if err := a.store.Outs.PutRange(link, outLinks); err != nil {
			return a.store.Tx.Terminal(), err
		}
		outsFk = link
	}

	inLinks := make([]linkage.Link, len(tx.Inputs))
	for i, in := range tx.Inputs {
		link, err := a.store.Input.PutNext(schema.Input{
			Script:     in.Script,
			Witness:    in.Witness,
			Sequence:   in.Sequence,
			PointFk:    uint32(pointFks[i]),
			PointIndex: in.Previous.Index,
			ParentFk:   txFk,
		})
		if err != nil {
			return a.store.Tx.Terminal(), err
		}
		inLinks[i] = link
	}
	insFk := a.store.Ins.Terminal()
	if len(inLinks) > 0 {
		link, ok := a.store.Ins.Allocate(uint64(len(inLinks)))
		if !ok {
			return a.store.Tx.Terminal(), errcode.Wrap(errcode.ErrFault, "query: set(tx): allocate ins")
		}
		if err := a.store.Ins.PutRange(link, inLinks); err != nil {
			return a.store.Tx.Terminal(), err
		}
		insFk = link
	}

	rec := schema.Tx{
		Coinbase:    tx.Coinbase,
		WitlessSize: tx.WitlessSize,
		WitnessSize: tx.WitnessSize,
		Locktime:    tx.Locktime,
		Version:     tx.Version,
		InsCount:    uint32(len(inLinks)),
		OutsCount:   uint32(len(outLinks)),
		InsFk:       insFk,
		OutsFk:      outsFk,
	}
	if err := a.store.Tx.Set(txLink, tx.Hash[:], rec); err != nil {
		return a.store.Tx.Terminal(), err
	}
	if err := a.store.Tx.Commit(txLink, tx.Hash[:]); err != nil {
		return a.store.Tx.Terminal(), err
	}
	return txLink, nil
}

func (a *Archive) pointHash(pointFk uint32) (keys.Hash32, error) {
	if pointFk == 0 {
		return keys.Hash32{}, nil
	}
	b, err := a.store.Point.GetKey(linkage.Link(pointFk))
	if err != nil {
		return keys.Hash32{}, err
	}
	return hashFromBytes(b), nil
}

// GetTx reconstructs a domain.Transaction from its link.
func (a *Archive) GetTx(fk linkage.Link) (domain.Transaction, bool, error) {
	rec, ok, err := a.store.Tx.Get(fk)
	if err != nil || !ok {
		return domain.Transaction{}, ok, err
	}
	hashBytes, err := a.store.Tx.GetKey(fk)
	if err != nil {
		return domain.Transaction{}, false, err
	}

	outLinks, err := a.store.Outs.GetRange(rec.OutsFk, int(rec.OutsCount))
	if err != nil {
		return domain.Transaction{}, false, err
	}
	outputs := make([]domain.Output, len(outLinks))
	for i, l := range outLinks {
		o, err := a.store.Output.Get(l)
		if err != nil {
			return domain.Transaction{}, false, err
		}
		outputs[i] = domain.Output{Value: o.Value, Script: o.Script}
	}

	inLinks, err := a.store.Ins.GetRange(rec.InsFk, int(rec.InsCount))
	if err != nil {
		return domain.Transaction{}, false, err
	}
	inputs := make([]domain.Input, len(inLinks))
	for i, l := range inLinks {
		in, err := a.store.Input.Get(l)
		if err != nil {
			return domain.Transaction{}, false, err
		}
		prevHash, err := a.pointHash(in.PointFk)
		if err != nil {
			return domain.Transaction{}, false, err
		}
		inputs[i] = domain.Input{
			Previous: domain.Point{Hash: prevHash, Index: in.PointIndex},
			Script:   in.Script,
			Witness:  in.Witness,
			Sequence: in.Sequence,
		}
	}

	return domain.Transaction{
		Hash:        hashFromBytes(hashBytes),
		Version:     rec.Version,
		Locktime:    rec.Locktime,
		Coinbase:    rec.Coinbase,
		WitlessSize: rec.WitlessSize,
		WitnessSize: rec.WitnessSize,
		Inputs:      inputs,
		Outputs:     outputs,
	}, true, nil
}

// GetTxKeys returns every tx link belonging to the block at headerFk,
// in block order.
func (a *Archive) GetTxKeys(headerFk linkage.Link) ([]linkage.Link, error) {
	txs, ok, err := a.store.Txs.GetAt(uint64(headerFk))
	if err != nil || !ok {
		return nil, err
	}
	return txs.Tx, nil
}

// GetTxHashes returns the hash of every transaction belonging to the
// block at headerFk, in block order.
func (a *Archive) GetTxHashes(headerFk linkage.Link) ([]keys.Hash32, error) {
	links, err := a.GetTxKeys(headerFk)
	if err != nil {
		return nil, err
	}
	out := make([]keys.Hash32, len(links))
	for i, l := range links {
		b, err := a.store.Tx.GetKey(l)
		if err != nil {
			return nil, err
		}
		out[i] = hashFromBytes(b)
	}
	return out, nil
}

// GetTxCount returns the number of transactions in the block at
// headerFk.
func (a *Archive) GetTxCount(headerFk linkage.Link) (int, error) {
	txs, ok, err := a.store.Txs.GetAt(uint64(headerFk))
	if err != nil || !ok {
		return 0, err
	}
	return len(txs.Tx), nil
}

// SetBlock archives a header and every one of its transactions, then
// the block's tx association, each step idempotent on its own hash so
// re-submitting an already-archived block is a no-op.
func (a *Archive) SetBlock(b domain.Block) (linkage.Link, error) {
	headerFk, err := a.SetHeader(b.Header)
	if err != nil {
		return a.store.Header.Terminal(), err
	}
	if top, err := a.store.Txs.Top(uint64(headerFk)); err != nil {
		return a.store.Header.Terminal(), err
	} else if top != a.store.Txs.Terminal() {
		return headerFk, nil
	}

	txLinks := make([]linkage.Link, len(b.Transactions))
	for i, tx := range b.Transactions {
		link, err := a.SetTx(tx)
		if err != nil {
			return a.store.Header.Terminal(), err
		}
		txLinks[i] = link
	}
	if _, err := a.store.Txs.PutKey(uint64(headerFk), schema.Txs{Tx: txLinks}); err != nil {
		return a.store.Header.Terminal(), err
	}
	return headerFk, nil
}

// GetBlock reconstructs a full domain.Block from its header link.
func (a *Archive) GetBlock(headerFk linkage.Link) (domain.Block, bool, error) {
	header, ok, err := a.GetHeader(headerFk)
	if err != nil || !ok {
		return domain.Block{}, ok, err
	}
	links, err := a.GetTxKeys(headerFk)
	if err != nil {
		return domain.Block{}, false, err
	}
	txs := make([]domain.Transaction, len(links))
	for i, l := range links {
		tx, ok, err := a.GetTx(l)
		if err != nil {
			return domain.Block{}, false, err
		}
		if !ok {
			return domain.Block{}, false, errcode.ErrCorrupt
		}
		txs[i] = tx
	}
	return domain.Block{Header: header, Transactions: txs}, true, nil
}

// GetSpenders returns every recorded spend of the output named by
// (txFk, index), confirmed or not: a brute-force scan of the input
// table for entries matching that output's point_fk/index, since no
// reverse index from prevout to spender exists in the schema.
func (a *Archive) GetSpenders(txFk linkage.Link, index uint32) ([]domain.Spend, error) {
	hashBytes, err := a.store.Tx.GetKey(txFk)
	if err != nil {
		return nil, err
	}
	pointFk, ok, err := a.ToPoint(hashFromBytes(hashBytes))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var spends []domain.Spend
	err = a.store.Input.ForEach(func(link linkage.Link, in schema.Input) (bool, error) {
		if linkage.Link(in.PointFk) != pointFk || in.PointIndex != index {
			return true, nil
		}
		spenderFk := linkage.Link(in.ParentFk)
		spenderHashBytes, err := a.store.Tx.GetKey(spenderFk)
		if err != nil {
			return false, err
		}
		spenderTx, ok, err := a.store.Tx.Get(spenderFk)
		if err != nil {
			return false, err
		}
		inputIndex := uint32(0)
		if ok {
			insLinks, err := a.store.Ins.GetRange(spenderTx.InsFk, int(spenderTx.InsCount))
			if err != nil {
				return false, err
			}
			if idx, found := indexOfLink(insLinks, link); found {
				inputIndex = uint32(idx)
			}
		}
		spends = append(spends, domain.Spend{Spender: hashFromBytes(spenderHashBytes), InputIndex: inputIndex})
		return true, nil
	})
	return spends, err
}

// GetSpendersByOutput is GetSpenders for callers that only have an
// output link, resolving (tx_fk, index) by scanning the owning
// transaction's outs array for this link's position.
func (a *Archive) GetSpendersByOutput(outputLink linkage.Link) ([]domain.Spend, error) {
	txFk, index, err := a.outputOwner(outputLink)
	if err != nil {
		return nil, err
	}
	return a.GetSpenders(txFk, index)
}

func (a *Archive) outputOwner(outputLink linkage.Link) (linkage.Link, uint32, error) {
	out, err := a.store.Output.Get(outputLink)
	if err != nil {
		return 0, 0, err
	}
	txFk := linkage.Link(out.ParentFk)
	tx, ok, err := a.store.Tx.Get(txFk)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, errcode.ErrNotFound
	}
	outLinks, err := a.store.Outs.GetRange(tx.OutsFk, int(tx.OutsCount))
	if err != nil {
		return 0, 0, err
	}
	idx, found := indexOfLink(outLinks, outputLink)
	if !found {
		return 0, 0, errcode.ErrCorrupt
	}
	return txFk, uint32(idx), nil
}

// GetValue returns the value of the output at link.
func (a *Archive) GetValue(outputLink linkage.Link) (uint64, error) {
	out, err := a.store.Output.Get(outputLink)
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}

// GetTxSizes returns a transaction's witless and witness serialized
// sizes as archived alongside it.
func (a *Archive) GetTxSizes(txFk linkage.Link) (witless, witness uint32, err error) {
	rec, ok, err := a.store.Tx.Get(txFk)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, errcode.ErrNotFound
	}
	return rec.WitlessSize, rec.WitnessSize, nil
}

// PopulateWithMetadata resolves the full cached context of a previous
// output — coinbase flag, owning block height and value — looking it
// up through the point/tx/output chain and the strong_tx association
// to find its containing block (spec section 4.9).
func (a *Archive) PopulateWithMetadata(prevout keys.Hash32, index uint32) (domain.Metadata, bool, error) {
	txFk, ok, err := a.ToTx(prevout)
	if err != nil || !ok {
		return domain.Metadata{}, ok, err
	}
	tx, ok, err := a.store.Tx.Get(txFk)
	if err != nil || !ok {
		return domain.Metadata{}, ok, err
	}
	if index >= tx.OutsCount {
		return domain.Metadata{}, false, errcode.ErrNotFound
	}
	outLinks, err := a.store.Outs.GetRange(tx.OutsFk, int(tx.OutsCount))
	if err != nil {
		return domain.Metadata{}, false, err
	}
	out, err := a.store.Output.Get(outLinks[index])
	if err != nil {
		return domain.Metadata{}, false, err
	}

	var height uint32
	if blockFk, strong, err := a.strongBlock(txFk); err != nil {
		return domain.Metadata{}, false, err
	} else if strong {
		header, ok, err := a.getHeaderRecord(blockFk)
		if err != nil {
			return domain.Metadata{}, false, err
		}
		if ok {
			height = header.Height
		}
	}

	return domain.Metadata{Coinbase: tx.Coinbase, ParentBlockHeight: height, OutputValue: out.Value}, true, nil
}

// PopulateWithoutMetadata resolves only an output's value, skipping the
// strong_tx/header round trip PopulateWithMetadata needs for maturity
// checks — the cheaper path for callers that only need the amount.
func (a *Archive) PopulateWithoutMetadata(prevout keys.Hash32, index uint32) (domain.Metadata, bool, error) {
	txFk, ok, err := a.ToTx(prevout)
	if err != nil || !ok {
		return domain.Metadata{}, ok, err
	}
	link, err := a.ToOutput(txFk, index)
	if err != nil {
		return domain.Metadata{}, false, err
	}
	value, err := a.GetValue(link)
	if err != nil {
		return domain.Metadata{}, false, err
	}
	return domain.Metadata{OutputValue: value}, true, nil
}
