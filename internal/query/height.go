package query

import (
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
)

// confirmedLinkAt resolves a confirmed height to its header link,
// consulting the locator index before the confirmed arraymap and
// populating the index on a miss.
func (a *Archive) confirmedLinkAt(height uint32) (linkage.Link, bool, error) {
	a.locatorMu.Lock()
	if item := a.locatorIndex.Get(heightLink{height: height}); item != nil {
		a.locatorMu.Unlock()
		return item.(heightLink).link, true, nil
	}
	a.locatorMu.Unlock()

	entry, ok, err := a.store.Confirmed.GetAt(uint64(height))
	if err != nil || !ok {
		return a.store.Header.Terminal(), false, err
	}
	a.locatorMu.Lock()
	a.locatorIndex.ReplaceOrInsert(heightLink{height: height, link: entry.HeaderFk})
	a.locatorMu.Unlock()
	return entry.HeaderFk, true, nil
}

// GetLocatorHeights returns the classic block-locator height sequence
// counting back from topHeight: the 10 most recent heights, then
// exponentially doubling steps, always ending at height 0.
func GetLocatorHeights(topHeight uint32) []uint32 {
	var heights []uint32
	step := uint32(1)
	height := topHeight
	for {
		heights = append(heights, height)
		if height == 0 {
			break
		}
		if len(heights) >= 10 {
			step *= 2
		}
		if height < step {
			height = 0
		} else {
			height -= step
		}
	}
	return heights
}

// GetLocatorHashes resolves GetLocatorHeights(topHeight) against the
// confirmed chain, returning the matching block hashes in the same
// order (most recent first).
func (a *Archive) GetLocatorHashes(topHeight uint32) ([]keys.Hash32, error) {
	heights := GetLocatorHeights(topHeight)
	out := make([]keys.Hash32, 0, len(heights))
	for _, h := range heights {
		link, ok, err := a.confirmedLinkAt(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		hashBytes, err := a.store.Header.GetKey(link)
		if err != nil {
			return nil, err
		}
		out = append(out, hashFromBytes(hashBytes))
	}
	return out, nil
}

// invalidateLocator drops height from the locator index after a pop,
// since its confirmed-chain entry is no longer valid.
func (a *Archive) invalidateLocator(height uint32) {
	a.locatorMu.Lock()
	a.locatorIndex.Delete(heightLink{height: height})
	a.locatorMu.Unlock()
}
