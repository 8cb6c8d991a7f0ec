package query

import (
	"github.com/utxoarchive/archive/domain"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/linkage"
)

// Initialize bootstraps an empty archive with the genesis block:
// archives it, marks its transactions strong, and pushes it onto both
// the candidate and confirmed chains at height 0. Returns the genesis
// header's link. Calling Initialize on a non-empty archive is an error
// unless the genesis block given matches the one already archived, in
// which case it is a no-op returning the existing link.
func (a *Archive) Initialize(genesis domain.Block) (linkage.Link, error) {
	if _, ok, err := a.TopConfirmed(); err != nil {
		return a.store.Header.Terminal(), err
	} else if ok {
		existing, existsOK, err := a.ToHeader(genesis.Header.Hash)
		if err != nil {
			return a.store.Header.Terminal(), err
		}
		entry, entryOK, err := a.store.Confirmed.GetAt(0)
		if err != nil {
			return a.store.Header.Terminal(), err
		}
		if existsOK && entryOK && entry.HeaderFk == existing {
			return existing, nil
		}
		return a.store.Header.Terminal(), errcode.Wrap(errcode.OperationFailed, "query: initialize: archive already bootstrapped")
	}

	headerFk, err := a.SetBlock(genesis)
	if err != nil {
		return a.store.Header.Terminal(), err
	}
	if err := a.SetStrong(headerFk); err != nil {
		return a.store.Header.Terminal(), err
	}
	if err := a.PushCandidate(headerFk); err != nil {
		return a.store.Header.Terminal(), err
	}
	if err := a.PushConfirmed(headerFk, true); err != nil {
		return a.store.Header.Terminal(), err
	}
	return headerFk, nil
}
