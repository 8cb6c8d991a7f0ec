package query

import (
	"crypto/sha256"

	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
)

// doubleSHA256 is the pairwise combining hash used to build merkle
// subroots and proofs over the confirmed-height hash sequence. This is
// the archive's own commitment structure over its header chain, not
// part of consensus validation, so a plain stdlib sha256 suffices —
// nothing in the example corpus ships a generic double-hash helper
// better suited to it.
func doubleSHA256(b []byte) keys.Hash32 {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second
}

func hashPair(a, b keys.Hash32) keys.Hash32 {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return doubleSHA256(buf)
}

// merkleRoot folds a leaf sequence down to a single root, duplicating
// the final element of an odd-length level before pairing (spec
// section 4.11).
func merkleRoot(hashes []keys.Hash32) keys.Hash32 {
	if len(hashes) == 0 {
		return keys.Hash32{}
	}
	level := append([]keys.Hash32(nil), hashes...)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]keys.Hash32, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// buildProof returns the sibling hash at every level needed to recompute
// merkleRoot(hashes) from hashes[targetIndex] alone: merge_merkle
// applied across the full span in one pass (spec section 4.11).
func buildProof(hashes []keys.Hash32, targetIndex int) []keys.Hash32 {
	if len(hashes) == 0 {
		return nil
	}
	var proof []keys.Hash32
	level := append([]keys.Hash32(nil), hashes...)
	idx := targetIndex
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		sibling := idx ^ 1
		proof = append(proof, level[sibling])
		next := make([]keys.Hash32, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
		idx /= 2
	}
	return proof
}

// intervalSpan returns the configured merkle interval width, or
// (0, false) if interval caching is disabled (IntervalDepth 0xff).
func (a *Archive) intervalSpan() (uint64, bool) {
	depth := a.store.IntervalDepth()
	if depth == 0xff {
		return 0, false
	}
	return uint64(1) << depth, true
}

// GetConfirmedInterval returns the cached merkle subroot over confirmed
// block hashes [height-span, height), if height lands on an interval
// boundary and the entry has already been computed by CreateInterval.
func (a *Archive) GetConfirmedInterval(height uint64) (keys.Hash32, bool) {
	span, ok := a.intervalSpan()
	if !ok || a.intervals == nil || height == 0 || height%span != 0 {
		return keys.Hash32{}, false
	}
	return a.intervals.Get(height)
}

// CreateInterval computes and caches the merkle subroot over confirmed
// block hashes [height-span, height). Interval state is not required to
// survive a restart. GetMerkleProof and GetMerkleRootAndProof do not
// read this cache; they always recompute from the confirmed block
// hashes.
func (a *Archive) CreateInterval(height uint64) (keys.Hash32, error) {
	span, ok := a.intervalSpan()
	if !ok || height == 0 || height%span != 0 {
		return keys.Hash32{}, errShortInterval
	}
	hashes, err := a.confirmedHashRange(uint32(height-span), uint32(height-1))
	if err != nil {
		return keys.Hash32{}, err
	}
	root := merkleRoot(hashes)
	if a.intervals != nil {
		a.intervals.Add(height, root)
	}
	return root, nil
}

// confirmedHashRange returns the hashes of the confirmed blocks from
// height `from` to `to` inclusive.
func (a *Archive) confirmedHashRange(from, to uint32) ([]keys.Hash32, error) {
	out := make([]keys.Hash32, 0, int(to-from)+1)
	for h := from; h <= to; h++ {
		entry, ok, err := a.store.Confirmed.GetAt(uint64(h))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errcode.Wrap(errcode.MerkleNotFound, "query: confirmed height missing")
		}
		hashBytes, err := a.store.Header.GetKey(entry.HeaderFk)
		if err != nil {
			return nil, err
		}
		out = append(out, hashFromBytes(hashBytes))
	}
	return out, nil
}

// GetMerkleTree returns the single-element or merged merkle tree level
// over confirmed blocks [0, waypointHeight].
func (a *Archive) GetMerkleTree(waypointHeight uint32) ([]keys.Hash32, error) {
	hashes, err := a.confirmedHashRange(0, waypointHeight)
	if err != nil {
		return nil, err
	}
	if len(hashes) == 1 {
		return hashes, nil
	}
	return []keys.Hash32{merkleRoot(hashes)}, nil
}

// GetMerkleProof builds the sibling path proving targetHeight's block
// hash is included under the merkle root computed over confirmed
// blocks [0, waypointHeight].
func (a *Archive) GetMerkleProof(targetHeight, waypointHeight uint32) ([]keys.Hash32, error) {
	if targetHeight > waypointHeight {
		return nil, errcode.Wrap(errcode.MerkleArguments, "query: target_height exceeds waypoint_height")
	}
	top, ok, err := a.TopConfirmed()
	if err != nil {
		return nil, err
	}
	if !ok || waypointHeight > top {
		return nil, errcode.Wrap(errcode.MerkleNotFound, "query: waypoint_height beyond confirmed tip")
	}
	hashes, err := a.confirmedHashRange(0, waypointHeight)
	if err != nil {
		return nil, errcode.Wrap(errcode.MerkleProof, "query: confirmed range unavailable")
	}
	return buildProof(hashes, int(targetHeight)), nil
}

// GetMerkleRootAndProof returns both the merkle root over confirmed
// blocks [0, waypointHeight] and the sibling-path proof for
// targetHeight under that root.
func (a *Archive) GetMerkleRootAndProof(targetHeight, waypointHeight uint32) (keys.Hash32, []keys.Hash32, error) {
	if targetHeight > waypointHeight {
		return keys.Hash32{}, nil, errcode.Wrap(errcode.MerkleArguments, "query: target_height exceeds waypoint_height")
	}
	hashes, err := a.confirmedHashRange(0, waypointHeight)
	if err != nil {
		return keys.Hash32{}, nil, errcode.Wrap(errcode.MerkleProof, "query: confirmed range unavailable")
	}
	return merkleRoot(hashes), buildProof(hashes, int(targetHeight)), nil
}
