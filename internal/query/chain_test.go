package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/domain"
)

// buildChain archives a genesis block via Initialize, then height-1..n
// empty (non-coinbase-spending) blocks chained onto it, pushing each
// onto both the candidate and confirmed chains and marking it strong.
func buildChain(t *testing.T, a *Archive, n int) []domain.Block {
	t.Helper()
	genesis := genesisBlock()
	_, err := a.Initialize(genesis)
	require.NoError(t, err)

	blocks := []domain.Block{genesis}
	parentHash := genesis.Header.Hash
	for h := 1; h <= n; h++ {
		coinbase := domain.Transaction{
			Hash:        hashN(byte(0x40 + h)),
			WitlessSize: 100,
			WitnessSize: 100,
			Coinbase:    true,
			Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
		}
		block := domain.Block{
			Header: domain.Header{
				Hash:   hashN(byte(0x10 + h)),
				Parent: parentHash,
				Height: uint32(h),
			},
			Transactions: []domain.Transaction{coinbase},
		}
		headerFk, err := a.SetBlock(block)
		require.NoError(t, err)
		require.NoError(t, a.SetStrong(headerFk))
		require.NoError(t, a.PushCandidate(headerFk))
		require.NoError(t, a.PushConfirmed(headerFk, false))
		blocks = append(blocks, block)
		parentHash = block.Header.Hash
	}
	return blocks
}

func TestInitializeIsIdempotent(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()

	fk1, err := a.Initialize(genesis)
	require.NoError(t, err)

	fk2, err := a.Initialize(genesis)
	require.NoError(t, err)
	require.Equal(t, fk1, fk2)

	top, ok, err := a.TopConfirmed()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 0, top)
}

func TestInitializeRejectsDifferentGenesis(t *testing.T) {
	a := newCoreArchive(t)
	_, err := a.Initialize(genesisBlock())
	require.NoError(t, err)

	other := genesisBlock()
	other.Header.Hash = hashN(0xFE)
	_, err = a.Initialize(other)
	require.Error(t, err)
}

func TestPushCandidateRejectsNonContiguousHeight(t *testing.T) {
	a := newCoreArchive(t)
	_, err := a.Initialize(genesisBlock())
	require.NoError(t, err)

	skip := domain.Header{Hash: hashN(0x99), Parent: genesisBlock().Header.Hash, Height: 5}
	fk, err := a.SetHeader(skip)
	require.NoError(t, err)

	err = a.PushCandidate(fk)
	require.Error(t, err)
}

func TestPushPopConfirmedRoundTrip(t *testing.T) {
	a := newCoreArchive(t)
	blocks := buildChain(t, a, 2)

	top, ok, err := a.TopConfirmed()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, top)

	require.NoError(t, a.PopConfirmed())
	top, ok, err = a.TopConfirmed()
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, top)

	headerFk, ok, err := a.ToHeader(blocks[1].Header.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	confirmed, err := a.IsConfirmedBlock(headerFk)
	require.NoError(t, err)
	require.True(t, confirmed)
}

func TestIsConfirmedTxAndStrongTracking(t *testing.T) {
	a := newCoreArchive(t)
	blocks := buildChain(t, a, 1)

	coinbaseHash := blocks[1].Transactions[0].Hash
	txFk, ok, err := a.ToTx(coinbaseHash)
	require.NoError(t, err)
	require.True(t, ok)

	strong, err := a.IsStrongTx(txFk)
	require.NoError(t, err)
	require.True(t, strong)

	confirmed, err := a.IsConfirmedTx(txFk)
	require.NoError(t, err)
	require.True(t, confirmed)

	headerFk, ok, err := a.ToHeader(blocks[1].Header.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.SetUnstrong(headerFk))

	strong, err = a.IsStrongTx(txFk)
	require.NoError(t, err)
	require.False(t, strong)
}

func TestBlockConfirmableGenesisCoinbaseOnly(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()
	headerFk, err := a.SetBlock(genesis)
	require.NoError(t, err)

	code, err := a.BlockConfirmable(headerFk)
	require.NoError(t, err)
	require.Equal(t, "block_confirmable", code.String())
}

func TestGetBranchFeesSumsAcrossBlocks(t *testing.T) {
	a := newCoreArchive(t)
	buildChain(t, a, 2)

	total, err := a.GetBranchFees(context.Background(), 0, 2)
	require.NoError(t, err)
	// Coinbase transactions contribute zero fee by definition.
	require.EqualValues(t, 0, total)
}

func TestGetLocatorHeightsEndsAtZero(t *testing.T) {
	heights := GetLocatorHeights(20)
	require.NotEmpty(t, heights)
	require.EqualValues(t, 20, heights[0])
	require.EqualValues(t, 0, heights[len(heights)-1])
}

func TestGetLocatorHashesResolveAgainstConfirmedChain(t *testing.T) {
	a := newCoreArchive(t)
	blocks := buildChain(t, a, 3)

	hashes, err := a.GetLocatorHashes(3)
	require.NoError(t, err)
	require.Contains(t, hashes, blocks[3].Header.Hash)
	require.Contains(t, hashes, blocks[0].Header.Hash)
}

func TestMerkleRootAndProofRoundTrip(t *testing.T) {
	a := newCoreArchive(t)
	buildChain(t, a, 3)

	root, proof, err := a.GetMerkleRootAndProof(1, 3)
	require.NoError(t, err)
	require.NotEqual(t, [32]byte{}, [32]byte(root))
	require.NotEmpty(t, proof)

	sameProof, err := a.GetMerkleProof(1, 3)
	require.NoError(t, err)
	require.Equal(t, proof, sameProof)
}

func TestMerkleProofRejectsTargetPastWaypoint(t *testing.T) {
	a := newCoreArchive(t)
	buildChain(t, a, 2)

	_, err := a.GetMerkleProof(3, 1)
	require.Error(t, err)
}
