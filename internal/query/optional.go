package query

import (
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/schema"
)

// AddressIndexEnabled reports whether the optional address index was
// configured on open.
func (a *Archive) AddressIndexEnabled() bool { return a.store.Address != nil }

// IndexAddress records outputLink as reachable under scriptHash. A
// no-op, returning errcode.Unassociated, when the address index is
// disabled.
func (a *Archive) IndexAddress(scriptHash keys.Hash32, outputLink linkage.Link) error {
	if a.store.Address == nil {
		return errcode.Wrap(errcode.Unassociated, "query: address index disabled")
	}
	_, err := a.store.Address.PutKey(scriptHash[:], schema.AddressEntry{OutputFk: uint32(outputLink)})
	if a.addressPostings != nil {
		a.addressPostings.Invalidate(scriptHash)
	}
	return err
}

// GetOutputsByAddress returns every output link ever indexed under
// scriptHash, using the roaring-bitmap postings cache to avoid
// re-walking the hashmap chain on repeat queries to a popular address.
func (a *Archive) GetOutputsByAddress(scriptHash keys.Hash32) ([]linkage.Link, error) {
	if a.store.Address == nil {
		return nil, errcode.Wrap(errcode.Unassociated, "query: address index disabled")
	}
	if a.addressPostings == nil {
		a.addressPostings = schema.NewPostingsCache()
	}
	if bm, ok := a.addressPostings.Lookup(scriptHash); ok {
		out := make([]linkage.Link, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			out = append(out, linkage.Link(it.Next()))
		}
		return out, nil
	}

	entryLinks, err := a.store.Address.It(scriptHash[:])
	if err != nil {
		return nil, err
	}
	outputs := make([]linkage.Link, 0, len(entryLinks))
	fks := make([]uint32, 0, len(entryLinks))
	for _, l := range entryLinks {
		entry, ok, err := a.store.Address.Get(l)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		outputs = append(outputs, linkage.Link(entry.OutputFk))
		fks = append(fks, entry.OutputFk)
	}
	a.addressPostings.Fill(scriptHash, fks)
	return outputs, nil
}

// FilterIndexEnabled reports whether the optional neutrino compact
// filter index was configured on open.
func (a *Archive) FilterIndexEnabled() bool { return a.store.FilterBk != nil }

// SetFilter archives a block's BIP 157/158 compact filter: its
// commitment entry in filter_bk and its body in filter_tx, both keyed
// by header link.
func (a *Archive) SetFilter(headerFk linkage.Link, filterHash, filterHead keys.Hash32, body []byte) error {
	if a.store.FilterBk == nil || a.store.FilterTx == nil {
		return errcode.Wrap(errcode.Unassociated, "query: filter index disabled")
	}
	if err := a.store.FilterBk.Grow(uint64(headerFk) + 1); err != nil {
		return err
	}
	if err := a.store.FilterTx.Grow(uint64(headerFk) + 1); err != nil {
		return err
	}
	if _, err := a.store.FilterBk.PutKey(uint64(headerFk), schema.FilterBk{FilterHash: filterHash, FilterHead: filterHead}); err != nil {
		return err
	}
	_, err := a.store.FilterTx.PutKey(uint64(headerFk), schema.FilterTx{Filter: body})
	return err
}

// GetFilter returns a block's cached compact filter commitment and
// body, if the neutrino index is enabled and the block has one.
func (a *Archive) GetFilter(headerFk linkage.Link) (schema.FilterBk, []byte, bool, error) {
	if a.store.FilterBk == nil || a.store.FilterTx == nil {
		return schema.FilterBk{}, nil, false, nil
	}
	bk, ok, err := a.store.FilterBk.GetAt(uint64(headerFk))
	if err != nil || !ok {
		return schema.FilterBk{}, nil, false, err
	}
	tx, ok, err := a.store.FilterTx.GetAt(uint64(headerFk))
	if err != nil || !ok {
		return schema.FilterBk{}, nil, false, err
	}
	return bk, tx.Filter, true, nil
}
