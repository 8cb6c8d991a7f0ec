package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/domain"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
)

func mustTx(t *testing.T, a *Archive, hash keys.Hash32) linkage.Link {
	t.Helper()
	fk, ok, err := a.ToTx(hash)
	require.NoError(t, err)
	require.True(t, ok)
	return fk
}

// TestIsSpentOutputStrongConfirmed reproduces the archive's spent-output
// visibility invariant over block1a's two outputs: unspent while
// unstrong, still unspent once strong but unconfirmed, and spent only
// once the spending block is both strong and confirmed.
func TestIsSpentOutputStrongConfirmed(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()
	_, err := a.Initialize(genesis)
	require.NoError(t, err)

	block1a := domain.Block{
		Header: domain.Header{Hash: hashN(0x11), Parent: genesis.Header.Hash, Height: 1},
		Transactions: []domain.Transaction{{
			Hash:        hashN(0x41),
			WitlessSize: 100,
			WitnessSize: 100,
			Coinbase:    true,
			Outputs: []domain.Output{
				{Value: 1000, Script: []byte{0x51}},
				{Value: 2000, Script: []byte{0x52}},
			},
		}},
	}
	header1Fk, err := a.SetBlock(block1a)
	require.NoError(t, err)

	block2a := domain.Block{
		Header: domain.Header{Hash: hashN(0x12), Parent: block1a.Header.Hash, Height: 2},
		Transactions: []domain.Transaction{
			{
				Hash:        hashN(0x42),
				WitlessSize: 100,
				WitnessSize: 100,
				Coinbase:    true,
				Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
			},
			{
				Hash:        hashN(0x43),
				WitlessSize: 200,
				WitnessSize: 200,
				Inputs: []domain.Input{
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 0}},
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 1}},
				},
				Outputs: []domain.Output{{Value: 2900, Script: []byte{0x51}}},
			},
		},
	}
	header2Fk, err := a.SetBlock(block2a)
	require.NoError(t, err)

	tx1Fk := mustTx(t, a, block1a.Transactions[0].Hash)
	output0, err := a.ToOutput(tx1Fk, 0)
	require.NoError(t, err)
	output1, err := a.ToOutput(tx1Fk, 1)
	require.NoError(t, err)

	spent, err := a.IsSpentOutput(output0)
	require.NoError(t, err)
	require.False(t, spent, "unstrong, unconfirmed: not yet spent")

	require.NoError(t, a.SetStrong(header1Fk))
	require.NoError(t, a.SetStrong(header2Fk))

	spent, err = a.IsSpentOutput(output0)
	require.NoError(t, err)
	require.False(t, spent, "strong but unconfirmed: still not spent")
	spent, err = a.IsSpentOutput(output1)
	require.NoError(t, err)
	require.False(t, spent)

	require.NoError(t, a.PushCandidate(header1Fk))
	require.NoError(t, a.PushCandidate(header2Fk))
	require.NoError(t, a.PushConfirmed(header1Fk, false))
	require.NoError(t, a.PushConfirmed(header2Fk, false))

	spent, err = a.IsSpentOutput(output0)
	require.NoError(t, err)
	require.True(t, spent, "strong and confirmed: both outputs now spent")
	spent, err = a.IsSpentOutput(output1)
	require.NoError(t, err)
	require.True(t, spent)

	genesisTxFk := mustTx(t, a, genesis.Transactions[0].Hash)
	genesisOutput, err := a.ToOutput(genesisTxFk, 0)
	require.NoError(t, err)
	spent, err = a.IsSpentOutput(genesisOutput)
	require.NoError(t, err)
	require.False(t, spent, "genesis coinbase output is never spent in this chain")
}

// TestGetSpendersReportsDoubleSpend reproduces the archive's double-spend
// visibility invariant: once a second transaction spends the same
// prevouts as an existing spender, get_spenders reports both, even
// before either is confirmed.
func TestGetSpendersReportsDoubleSpend(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()
	_, err := a.Initialize(genesis)
	require.NoError(t, err)

	block1a := domain.Block{
		Header: domain.Header{Hash: hashN(0x11), Parent: genesis.Header.Hash, Height: 1},
		Transactions: []domain.Transaction{{
			Hash:        hashN(0x41),
			WitlessSize: 100,
			WitnessSize: 100,
			Coinbase:    true,
			Outputs: []domain.Output{
				{Value: 1000, Script: []byte{0x51}},
				{Value: 2000, Script: []byte{0x52}},
			},
		}},
	}
	header1Fk, err := a.SetBlock(block1a)
	require.NoError(t, err)
	require.NoError(t, a.SetStrong(header1Fk))

	tx2 := domain.Transaction{
		Hash:        hashN(0x43),
		WitlessSize: 200,
		WitnessSize: 200,
		Inputs: []domain.Input{
			{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 0}},
			{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 1}},
		},
		Outputs: []domain.Output{{Value: 2900, Script: []byte{0x51}}},
	}
	_, err = a.SetTx(tx2)
	require.NoError(t, err)

	tx1Fk := mustTx(t, a, block1a.Transactions[0].Hash)

	spenders0, err := a.GetSpenders(tx1Fk, 0)
	require.NoError(t, err)
	require.Len(t, spenders0, 1)

	// tx4 double-spends the exact same prevouts as tx2.
	tx4 := domain.Transaction{
		Hash:        hashN(0x44),
		WitlessSize: 200,
		WitnessSize: 200,
		Inputs: []domain.Input{
			{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 0}},
			{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 1}},
		},
		Outputs: []domain.Output{{Value: 2800, Script: []byte{0x51}}},
	}
	_, err = a.SetTx(tx4)
	require.NoError(t, err)

	spenders0, err = a.GetSpenders(tx1Fk, 0)
	require.NoError(t, err)
	require.Len(t, spenders0, 2, "both tx2 and tx4 now spend output 0")

	spenders1, err := a.GetSpenders(tx1Fk, 1)
	require.NoError(t, err)
	require.Len(t, spenders1, 2, "both tx2 and tx4 now spend output 1")
}

// TestBlockConfirmableConfirmedDoubleSpend reproduces BlockConfirmable's
// confirmed_double_spend branch: block3a spends the same prevouts as
// already-confirmed block2a, so confirming block3a must fail.
func TestBlockConfirmableConfirmedDoubleSpend(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()
	_, err := a.Initialize(genesis)
	require.NoError(t, err)

	block1a := domain.Block{
		Header: domain.Header{Hash: hashN(0x11), Parent: genesis.Header.Hash, Height: 1},
		Transactions: []domain.Transaction{{
			Hash:        hashN(0x41),
			WitlessSize: 100,
			WitnessSize: 100,
			Coinbase:    false,
			Outputs: []domain.Output{
				{Value: 1000, Script: []byte{0x51}},
				{Value: 2000, Script: []byte{0x52}},
			},
		}},
	}
	header1Fk, err := a.SetBlock(block1a)
	require.NoError(t, err)
	require.NoError(t, a.SetStrong(header1Fk))
	require.NoError(t, a.PushCandidate(header1Fk))
	require.NoError(t, a.PushConfirmed(header1Fk, false))

	block2a := domain.Block{
		Header: domain.Header{Hash: hashN(0x12), Parent: block1a.Header.Hash, Height: 2},
		Transactions: []domain.Transaction{
			{
				Hash:        hashN(0x42),
				WitlessSize: 100,
				WitnessSize: 100,
				Coinbase:    true,
				Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
			},
			{
				Hash:        hashN(0x43),
				WitlessSize: 200,
				WitnessSize: 200,
				Inputs: []domain.Input{
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 0}},
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 1}},
				},
				Outputs: []domain.Output{{Value: 2900, Script: []byte{0x51}}},
			},
		},
	}
	header2Fk, err := a.SetBlock(block2a)
	require.NoError(t, err)
	require.NoError(t, a.SetStrong(header2Fk))
	require.NoError(t, a.PushCandidate(header2Fk))
	require.NoError(t, a.PushConfirmed(header2Fk, false))

	block3a := domain.Block{
		Header: domain.Header{Hash: hashN(0x13), Parent: block2a.Header.Hash, Height: 3},
		Transactions: []domain.Transaction{
			{
				Hash:        hashN(0x44),
				WitlessSize: 100,
				WitnessSize: 100,
				Coinbase:    true,
				Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
			},
			{
				// Same prevouts as block2a's tx: a confirmed double spend.
				Hash:        hashN(0x45),
				WitlessSize: 200,
				WitnessSize: 200,
				Inputs: []domain.Input{
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 0}},
					{Previous: domain.Point{Hash: block1a.Transactions[0].Hash, Index: 1}},
				},
				Outputs: []domain.Output{{Value: 2800, Script: []byte{0x51}}},
			},
		},
	}
	header3Fk, err := a.SetBlock(block3a)
	require.NoError(t, err)
	require.NoError(t, a.SetStrong(header3Fk))

	code, err := a.BlockConfirmable(header3Fk)
	require.NoError(t, err)
	require.Equal(t, errcode.ConfirmedDoubleSpend.String(), code.String())
}

// TestBlockConfirmableImmatureCoinbase reproduces BlockConfirmable's
// coinbase_maturity branch: a block at height 1 spending genesis's
// coinbase output has not accumulated the 100-confirmation maturity
// window.
func TestBlockConfirmableImmatureCoinbase(t *testing.T) {
	a := newCoreArchive(t)
	genesis := genesisBlock()
	_, err := a.Initialize(genesis)
	require.NoError(t, err)

	genesisHeaderFk, ok, err := a.ToHeader(genesis.Header.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.SetStrong(genesisHeaderFk))

	spendsGenesis := domain.Block{
		Header: domain.Header{Hash: hashN(0x11), Parent: genesis.Header.Hash, Height: 1},
		Transactions: []domain.Transaction{
			{
				Hash:        hashN(0x41),
				WitlessSize: 100,
				WitnessSize: 100,
				Coinbase:    true,
				Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
			},
			{
				Hash:        hashN(0x42),
				WitlessSize: 200,
				WitnessSize: 200,
				Inputs: []domain.Input{
					{Previous: domain.Point{Hash: genesis.Transactions[0].Hash, Index: 0}},
				},
				Outputs: []domain.Output{{Value: 4999999000, Script: []byte{0x51}}},
			},
		},
	}
	headerFk, err := a.SetBlock(spendsGenesis)
	require.NoError(t, err)

	code, err := a.BlockConfirmable(headerFk)
	require.NoError(t, err)
	require.Equal(t, errcode.CoinbaseMaturity.String(), code.String())
}

// TestMerkleRootAndProofConcreteValues reproduces the archive's merkle
// scenario over four confirmed blocks [genesis, block1, block2, block3]:
// proof entries for a four-leaf tree are the direct sibling subroots,
// computed the same way by GetMerkleRootAndProof and by folding
// merkleRoot/hashPair directly over the confirmed hash sequence.
func TestMerkleRootAndProofConcreteValues(t *testing.T) {
	a := newCoreArchive(t)
	blocks := buildChain(t, a, 3)

	leaves := []keys.Hash32{
		blocks[0].Header.Hash,
		blocks[1].Header.Hash,
		blocks[2].Header.Hash,
		blocks[3].Header.Hash,
	}

	tree, err := a.GetMerkleTree(3)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Equal(t, merkleRoot(leaves), tree[0])

	root33, proof33, err := a.GetMerkleRootAndProof(3, 3)
	require.NoError(t, err)
	require.Equal(t, merkleRoot(leaves), root33)
	require.Len(t, proof33, 2)
	require.Equal(t, merkleRoot([]keys.Hash32{leaves[2]}), proof33[0])
	require.Equal(t, merkleRoot([]keys.Hash32{leaves[0], leaves[1]}), proof33[1])

	root13, proof13, err := a.GetMerkleRootAndProof(1, 3)
	require.NoError(t, err)
	require.Equal(t, merkleRoot(leaves), root13)
	require.Len(t, proof13, 2)
	require.Equal(t, merkleRoot([]keys.Hash32{leaves[0]}), proof13[0])
	require.Equal(t, merkleRoot([]keys.Hash32{leaves[2], leaves[3]}), proof13[1])
}
