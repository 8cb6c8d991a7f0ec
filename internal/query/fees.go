package query

import (
	"context"

	"github.com/holiman/uint256"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
)

// Fee returns a transaction's fee: the sum of its input values minus
// the sum of its output values. A coinbase transaction (no real
// inputs) has a fee of zero by definition. Totals accumulate in
// uint256 so a maliciously large or corrupt record cannot wrap a
// uint64 sum silently.
func (a *Archive) Fee(txFk linkage.Link) (uint64, error) {
	tx, ok, err := a.store.Tx.Get(txFk)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errcode.ErrNotFound
	}
	if tx.Coinbase {
		return 0, nil
	}

	inLinks, err := a.store.Ins.GetRange(tx.InsFk, int(tx.InsCount))
	if err != nil {
		return 0, err
	}
	inTotal := new(uint256.Int)
	for _, inLink := range inLinks {
		in, err := a.store.Input.Get(inLink)
		if err != nil {
			return 0, err
		}
		if in.PointFk == 0 {
			continue
		}
		prevoutHash, err := a.pointHash(in.PointFk)
		if err != nil {
			return 0, err
		}
		meta, ok, err := a.PopulateWithoutMetadata(prevoutHash, in.PointIndex)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errcode.Wrap(errcode.Integrity1, "query: fee: prevout not archived")
		}
		inTotal.Add(inTotal, uint256.NewInt(meta.OutputValue))
	}

	outLinks, err := a.store.Outs.GetRange(tx.OutsFk, int(tx.OutsCount))
	if err != nil {
		return 0, err
	}
	outTotal := new(uint256.Int)
	for _, outLink := range outLinks {
		out, err := a.store.Output.Get(outLink)
		if err != nil {
			return 0, err
		}
		outTotal.Add(outTotal, uint256.NewInt(out.Value))
	}

	if inTotal.Cmp(outTotal) < 0 {
		return 0, errcode.Wrap(errcode.Integrity1, "query: fee: outputs exceed inputs")
	}
	fee := new(uint256.Int).Sub(inTotal, outTotal)
	return fee.Uint64(), nil
}

// FeeRate returns a transaction's fee divided by its witless size, in
// satoshis per byte truncated toward zero. A zero-size transaction
// (never archived in practice) reports a zero rate rather than
// dividing by zero.
func (a *Archive) FeeRate(txFk linkage.Link) (uint64, error) {
	fee, err := a.Fee(txFk)
	if err != nil {
		return 0, err
	}
	_, witless, err := a.GetTxSizes(txFk)
	if err != nil {
		return 0, err
	}
	if witless == 0 {
		return 0, nil
	}
	return fee / uint64(witless), nil
}

// GetBranchFees sums the fees of every transaction in the confirmed
// blocks from fromHeight to toHeight inclusive, polling ctx between
// blocks so a caller can cancel a long scan.
func (a *Archive) GetBranchFees(ctx context.Context, fromHeight, toHeight uint32) (uint64, error) {
	total := new(uint256.Int)
	for h := fromHeight; h <= toHeight; h++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		entry, ok, err := a.store.Confirmed.GetAt(uint64(h))
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errcode.ErrNotFound
		}
		txLinks, err := a.GetTxKeys(entry.HeaderFk)
		if err != nil {
			return 0, err
		}
		for _, txFk := range txLinks {
			fee, err := a.Fee(txFk)
			if err != nil {
				return 0, err
			}
			total.Add(total, uint256.NewInt(fee))
		}
	}
	return total.Uint64(), nil
}
