package query

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/schema"
	"github.com/utxoarchive/archive/internal/table"
)

// recoverTop finds the current top height of a height-indexed arraymap
// by probing downward from its allocated bucket count until a non-empty
// cell is found. Buckets only ever grow, so this always terminates and
// always finds the true top after a restart.
func recoverTop(am *table.ArrayMap[schema.HeightEntry]) (uint32, bool, error) {
	buckets := am.Buckets()
	for h := buckets; h > 0; h-- {
		height := h - 1
		link, err := am.Top(height)
		if err != nil {
			return 0, false, err
		}
		if link != am.Terminal() {
			return uint32(height), true, nil
		}
	}
	return 0, false, nil
}

func (c *chainTop) get(am *table.ArrayMap[schema.HeightEntry]) (uint32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known {
		return c.top, true, nil
	}
	top, ok, err := recoverTop(am)
	if err != nil {
		return 0, false, err
	}
	if ok {
		c.known = true
		c.top = top
	}
	return top, ok, nil
}

func (c *chainTop) set(height uint32) {
	c.mu.Lock()
	c.known = true
	c.top = height
	c.mu.Unlock()
}

func (c *chainTop) clear(newTop uint32, hadAny bool) {
	c.mu.Lock()
	c.known = hadAny
	c.top = newTop
	c.mu.Unlock()
}

// TopCandidate returns the current candidate chain's tip height.
func (a *Archive) TopCandidate() (uint32, bool, error) { return a.candidateTop.get(a.store.Candidate) }

// TopConfirmed returns the current confirmed chain's tip height.
func (a *Archive) TopConfirmed() (uint32, bool, error) { return a.confirmedTop.get(a.store.Confirmed) }

func pushHeight(am *table.ArrayMap[schema.HeightEntry], height uint32, headerFk linkage.Link) error {
	if err := am.Grow(uint64(height) + 1); err != nil {
		return err
	}
	link, ok := am.Allocate(1)
	if !ok {
		return errcode.Wrap(errcode.ErrFault, "query: push: allocate")
	}
	_, err := am.Put(link, uint64(height), schema.HeightEntry{HeaderFk: headerFk})
	return err
}

func popHeight(am *table.ArrayMap[schema.HeightEntry], height uint32) error {
	top, err := am.Top(uint64(height))
	if err != nil {
		return err
	}
	if top == am.Terminal() {
		return errcode.ErrNotFound
	}
	next, err := am.Next(top)
	if err != nil {
		return err
	}
	return am.Unwind(uint64(height), next)
}

// PushCandidate adds a header to the candidate chain at its own
// height, which must be exactly one past the current top (or zero, if
// the candidate chain is still empty).
func (a *Archive) PushCandidate(headerFk linkage.Link) error {
	header, ok, err := a.getHeaderRecord(headerFk)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrNotFound
	}
	top, hasTop, err := a.TopCandidate()
	if err != nil {
		return err
	}
	if hasTop && header.Height != top+1 {
		return errcode.Wrap(errcode.OperationFailed, "query: push_candidate: height not contiguous with tip")
	}
	if !hasTop && header.Height != 0 {
		return errcode.Wrap(errcode.OperationFailed, "query: push_candidate: first entry must be height 0")
	}
	if err := pushHeight(a.store.Candidate, header.Height, headerFk); err != nil {
		return err
	}
	a.candidateTop.set(header.Height)
	return nil
}

// PopCandidate removes the candidate chain's tip entry.
func (a *Archive) PopCandidate() error {
	top, ok, err := a.TopCandidate()
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrNotFound
	}
	if err := popHeight(a.store.Candidate, top); err != nil {
		return err
	}
	if top == 0 {
		a.candidateTop.clear(0, false)
		return nil
	}
	a.candidateTop.clear(top-1, true)
	return nil
}

// IsCandidateHeader reports whether headerFk occupies its own height on
// the candidate chain.
func (a *Archive) IsCandidateHeader(headerFk linkage.Link) (bool, error) {
	header, ok, err := a.getHeaderRecord(headerFk)
	if err != nil || !ok {
		return false, err
	}
	entry, ok, err := a.store.Candidate.GetAt(uint64(header.Height))
	if err != nil || !ok {
		return false, err
	}
	return entry.HeaderFk == headerFk, nil
}

// PushConfirmed adds a header to the confirmed chain at its own
// height. allowRepeatGenesis permits re-pushing height 0 onto an
// already-confirmed chain, the one case (bootstrap re-entry) where a
// height-0 push does not have to extend the tip.
func (a *Archive) PushConfirmed(headerFk linkage.Link, allowRepeatGenesis bool) error {
	header, ok, err := a.getHeaderRecord(headerFk)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrNotFound
	}
	top, hasTop, err := a.TopConfirmed()
	if err != nil {
		return err
	}
	switch {
	case !hasTop && header.Height != 0:
		return errcode.Wrap(errcode.OperationFailed, "query: push_confirmed: first entry must be genesis")
	case hasTop && header.Height == 0 && !allowRepeatGenesis:
		return errcode.Wrap(errcode.OperationFailed, "query: push_confirmed: genesis already confirmed")
	case hasTop && header.Height != 0 && header.Height != top+1:
		return errcode.Wrap(errcode.OperationFailed, "query: push_confirmed: height not contiguous with tip")
	}
	if err := pushHeight(a.store.Confirmed, header.Height, headerFk); err != nil {
		return err
	}
	if !hasTop || header.Height > top {
		a.confirmedTop.set(header.Height)
	}
	if a.confirmedCache != nil {
		a.confirmedCache.Add(headerFk, true)
	}
	return nil
}

// PopConfirmed removes the confirmed chain's tip entry.
func (a *Archive) PopConfirmed() error {
	top, ok, err := a.TopConfirmed()
	if err != nil {
		return err
	}
	if !ok {
		return errcode.ErrNotFound
	}
	poppedEntry, entryOK, err := a.store.Confirmed.GetAt(uint64(top))
	if err != nil {
		return err
	}
	if err := popHeight(a.store.Confirmed, top); err != nil {
		return err
	}
	if entryOK && a.confirmedCache != nil {
		a.confirmedCache.Add(poppedEntry.HeaderFk, false)
	}
	a.invalidateLocator(top)
	if top == 0 {
		a.confirmedTop.clear(0, false)
		return nil
	}
	a.confirmedTop.clear(top-1, true)
	return nil
}

// IsConfirmedBlock reports whether headerFk occupies its own height on
// the confirmed chain. Consults the bounded confirmedCache first;
// PushConfirmed/PopConfirmed keep it current as the tip moves.
func (a *Archive) IsConfirmedBlock(headerFk linkage.Link) (bool, error) {
	if a.confirmedCache != nil {
		if v, ok := a.confirmedCache.Get(headerFk); ok {
			return v, nil
		}
	}
	header, ok, err := a.getHeaderRecord(headerFk)
	if err != nil || !ok {
		return false, err
	}
	entry, ok, err := a.store.Confirmed.GetAt(uint64(header.Height))
	if err != nil || !ok {
		return false, err
	}
	confirmed := entry.HeaderFk == headerFk
	if a.confirmedCache != nil {
		a.confirmedCache.Add(headerFk, confirmed)
	}
	return confirmed, nil
}

// SetStrong marks every transaction in the block at headerFk as
// strong, asserting that block as the tx's containing ancestry.
func (a *Archive) SetStrong(headerFk linkage.Link) error {
	return a.markStrong(headerFk, true)
}

// SetUnstrong marks every transaction in the block at headerFk as not
// strong (the block is being disconnected).
func (a *Archive) SetUnstrong(headerFk linkage.Link) error {
	return a.markStrong(headerFk, false)
}

func (a *Archive) markStrong(headerFk linkage.Link, strong bool) error {
	txLinks, err := a.GetTxKeys(headerFk)
	if err != nil {
		return err
	}
	for _, txFk := range txLinks {
		key := schema.StrongTxKey(txFk)
		if _, err := a.store.StrongTx.PutKey(key, schema.StrongTx{BlockFk: headerFk, Strong: strong}); err != nil {
			return err
		}
		if a.strongCache != nil {
			a.strongCache.Add(txFk, strongState{blockFk: headerFk, strong: strong})
		}
	}
	return nil
}

// strongBlock returns the block most recently marked strong for txFk,
// and whether a positive marking is currently in effect. Consults the
// bounded strongCache before the strong_tx table, since confirmability
// checks re-resolve the same handful of transactions repeatedly.
func (a *Archive) strongBlock(txFk linkage.Link) (linkage.Link, bool, error) {
	if a.strongCache != nil {
		if s, ok := a.strongCache.Get(txFk); ok {
			if !s.strong {
				return a.store.Header.Terminal(), false, nil
			}
			return s.blockFk, true, nil
		}
	}
	rec, ok, err := a.store.StrongTx.Get(a.strongTxLink(txFk))
	if err != nil || !ok || !rec.Strong {
		if err == nil && a.strongCache != nil {
			a.strongCache.Add(txFk, strongState{strong: false})
		}
		return a.store.Header.Terminal(), false, err
	}
	if a.strongCache != nil {
		a.strongCache.Add(txFk, strongState{blockFk: rec.BlockFk, strong: true})
	}
	return rec.BlockFk, true, nil
}

func (a *Archive) strongTxLink(txFk linkage.Link) linkage.Link {
	link, _, err := a.store.StrongTx.First(schema.StrongTxKey(txFk))
	if err != nil {
		return a.store.StrongTx.Terminal()
	}
	return link
}

// IsStrongTx reports whether txFk's most recent strong_tx marking is
// positive.
func (a *Archive) IsStrongTx(txFk linkage.Link) (bool, error) {
	_, strong, err := a.strongBlock(txFk)
	return strong, err
}

// IsStrongBlock reports whether every transaction in the block at
// headerFk is currently strong and attributed to that same block.
func (a *Archive) IsStrongBlock(headerFk linkage.Link) (bool, error) {
	txLinks, err := a.GetTxKeys(headerFk)
	if err != nil {
		return false, err
	}
	for _, txFk := range txLinks {
		blockFk, strong, err := a.strongBlock(txFk)
		if err != nil {
			return false, err
		}
		if !strong || blockFk != headerFk {
			return false, nil
		}
	}
	return true, nil
}

// IsConfirmedTx reports whether txFk is strong and its asserting block
// is the confirmed entry at that block's own height.
func (a *Archive) IsConfirmedTx(txFk linkage.Link) (bool, error) {
	blockFk, strong, err := a.strongBlock(txFk)
	if err != nil || !strong {
		return false, err
	}
	return a.IsConfirmedBlock(blockFk)
}

// IsConfirmedInput reports whether the input's owning transaction is
// confirmed.
func (a *Archive) IsConfirmedInput(inputLink linkage.Link) (bool, error) {
	txFk, err := a.ToInputTx(inputLink)
	if err != nil {
		return false, err
	}
	return a.IsConfirmedTx(txFk)
}

// IsConfirmedOutput reports whether the output's owning transaction is
// confirmed.
func (a *Archive) IsConfirmedOutput(outputLink linkage.Link) (bool, error) {
	txFk, err := a.ToOutputTx(outputLink)
	if err != nil {
		return false, err
	}
	return a.IsConfirmedTx(txFk)
}

// IsSpentOutput reports whether any confirmed, strong transaction
// spends the output at link.
func (a *Archive) IsSpentOutput(outputLink linkage.Link) (bool, error) {
	txFk, index, err := a.outputOwner(outputLink)
	if err != nil {
		return false, err
	}
	spends, err := a.GetSpenders(txFk, index)
	if err != nil {
		return false, err
	}
	for _, spend := range spends {
		spenderFk, ok, err := a.ToTx(spend.Spender)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		confirmed, err := a.IsConfirmedTx(spenderFk)
		if err != nil {
			return false, err
		}
		if confirmed {
			return true, nil
		}
	}
	return false, nil
}

// coinbaseMaturity is the number of confirmations a coinbase output
// must accumulate before it may be spent.
const coinbaseMaturity = 100

// IsMature reports whether the output consumed by the input at
// spendFk can be spent at the given spending height: always true for a
// non-coinbase output, otherwise true once height - owning block
// height >= coinbaseMaturity.
func (a *Archive) IsMature(spendFk linkage.Link, height uint32) (bool, error) {
	in, err := a.store.Input.Get(spendFk)
	if err != nil {
		return false, err
	}
	if in.PointFk == 0 {
		return true, nil
	}
	prevoutHash, err := a.pointHash(in.PointFk)
	if err != nil {
		return false, err
	}
	prevTxFk, ok, err := a.ToTx(prevoutHash)
	if err != nil || !ok {
		return false, err
	}
	tx, ok, err := a.store.Tx.Get(prevTxFk)
	if err != nil || !ok {
		return false, err
	}
	if !tx.Coinbase {
		return true, nil
	}
	blockFk, strong, err := a.strongBlock(prevTxFk)
	if err != nil || !strong {
		return false, err
	}
	owner, ok, err := a.getHeaderRecord(blockFk)
	if err != nil || !ok {
		return false, err
	}
	return height-owner.Height >= coinbaseMaturity, nil
}

// BlockConfirmable checks every non-coinbase input of every transaction
// in the block at headerFk for a missing prevout, immaturity, or a
// confirmed double-spend, returning the first failing errcode.Code or
// errcode.BlockConfirmable on success.
func (a *Archive) BlockConfirmable(headerFk linkage.Link) (errcode.Code, error) {
	header, ok, err := a.getHeaderRecord(headerFk)
	if err != nil {
		return errcode.OperationFailed, err
	}
	if !ok {
		return errcode.OperationFailed, errcode.ErrNotFound
	}
	txLinks, err := a.GetTxKeys(headerFk)
	if err != nil {
		return errcode.OperationFailed, err
	}
	for i, txFk := range txLinks {
		tx, ok, err := a.store.Tx.Get(txFk)
		if err != nil {
			return errcode.OperationFailed, err
		}
		if !ok {
			return errcode.OperationFailed, errcode.ErrCorrupt
		}
		if i == 0 && tx.Coinbase {
			continue
		}
		inLinks, err := a.store.Ins.GetRange(tx.InsFk, int(tx.InsCount))
		if err != nil {
			return errcode.OperationFailed, err
		}
		for _, inLink := range inLinks {
			in, err := a.store.Input.Get(inLink)
			if err != nil {
				return errcode.OperationFailed, err
			}
			if in.PointFk == 0 {
				continue
			}
			prevoutHash, err := a.pointHash(in.PointFk)
			if err != nil {
				return errcode.OperationFailed, err
			}
			prevTxFk, ok, err := a.ToTx(prevoutHash)
			if err != nil {
				return errcode.OperationFailed, err
			}
			if !ok {
				return errcode.Integrity1, nil
			}
			if _, err := a.ToOutput(prevTxFk, in.PointIndex); err != nil {
				return errcode.Integrity1, nil
			}
			mature, err := a.IsMature(inLink, header.Height)
			if err != nil {
				return errcode.OperationFailed, err
			}
			if !mature {
				return errcode.CoinbaseMaturity, nil
			}
			spends, err := a.GetSpenders(prevTxFk, in.PointIndex)
			if err != nil {
				return errcode.OperationFailed, err
			}
			for _, spend := range spends {
				spenderFk, ok, err := a.ToTx(spend.Spender)
				if err != nil {
					return errcode.OperationFailed, err
				}
				if !ok || spenderFk == txFk {
					continue
				}
				confirmed, err := a.IsConfirmedTx(spenderFk)
				if err != nil {
					return errcode.OperationFailed, err
				}
				if confirmed {
					return errcode.ConfirmedDoubleSpend, nil
				}
			}
		}
	}
	return errcode.BlockConfirmable, nil
}
