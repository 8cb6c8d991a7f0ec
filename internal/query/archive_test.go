package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/config"
	"github.com/utxoarchive/archive/domain"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/store"
)

func coreTestConfig(t *testing.T) config.Config {
	t.Helper()
	small := config.TableConfig{Buckets: 16, Size: 4096}
	return config.Config{
		Directory:      t.TempDir(),
		FileGrowthRate: 0.5,
		IntervalDepth:  0xff,
		Header:         small,
		Point:          small,
		Tx:             small,
		Txs:            small,
		Candidate:      small,
		Confirmed:      small,
		StrongTx:       small,
		Prevout:        small,
		ValidatedBk:    small,
		ValidatedTx:    small,
	}
}

func newCoreArchive(t *testing.T) *Archive {
	t.Helper()
	cfg := coreTestConfig(t)
	s := store.New(cfg, nil)
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func hashN(b byte) keys.Hash32 {
	var h keys.Hash32
	h[0] = b
	return h
}

func genesisBlock() domain.Block {
	coinbase := domain.Transaction{
		Hash:        hashN(1),
		WitlessSize: 100,
		WitnessSize: 100,
		Coinbase:    true,
		Outputs:     []domain.Output{{Value: 5000000000, Script: []byte{0x51}}},
	}
	return domain.Block{
		Header:       domain.Header{Hash: hashN(0x10), Height: 0},
		Transactions: []domain.Transaction{coinbase},
	}
}

func TestSetHeaderIdempotentAndParentLinking(t *testing.T) {
	a := newCoreArchive(t)

	parent := domain.Header{Hash: hashN(1), Height: 0}
	_, err := a.SetHeader(parent)
	require.NoError(t, err)

	child := domain.Header{Hash: hashN(2), Parent: hashN(1), Height: 1}
	childFk, err := a.SetHeader(child)
	require.NoError(t, err)

	again, err := a.SetHeader(child)
	require.NoError(t, err)
	require.Equal(t, childFk, again, "setting the same hash twice must not create a second record")

	got, ok, err := a.GetHeader(childFk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, child.Hash, got.Hash)
	require.Equal(t, parent.Hash, got.Parent)

	_, err = a.SetHeader(domain.Header{Hash: hashN(3), Parent: hashN(99), Height: 2})
	require.Error(t, err, "a header naming an unarchived parent must fail")
}

func TestSetBlockAndGetBlockRoundTrip(t *testing.T) {
	a := newCoreArchive(t)
	block := genesisBlock()

	headerFk, err := a.SetBlock(block)
	require.NoError(t, err)

	again, err := a.SetBlock(block)
	require.NoError(t, err)
	require.Equal(t, headerFk, again, "re-submitting an archived block is a no-op")

	got, ok, err := a.GetBlock(headerFk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Transactions, 1)
	require.Equal(t, block.Transactions[0].Hash, got.Transactions[0].Hash)
	require.Equal(t, block.Transactions[0].Outputs[0].Value, got.Transactions[0].Outputs[0].Value)

	coinbaseFk, ok, err := a.ToTx(block.Transactions[0].Hash)
	require.NoError(t, err)
	require.True(t, ok)

	witless, witness, err := a.GetTxSizes(coinbaseFk)
	require.NoError(t, err)
	require.EqualValues(t, 100, witless)
	require.EqualValues(t, 100, witness)
}

func TestSetTxWithPrevoutResolvesValue(t *testing.T) {
	a := newCoreArchive(t)
	block := genesisBlock()
	_, err := a.SetBlock(block)
	require.NoError(t, err)

	spender := domain.Transaction{
		Hash:        hashN(2),
		WitlessSize: 200,
		WitnessSize: 204,
		Inputs: []domain.Input{
			{Previous: domain.Point{Hash: hashN(1), Index: 0}, Script: []byte{0x01}},
		},
		Outputs: []domain.Output{{Value: 4999990000, Script: []byte{0x51}}},
	}
	txFk, err := a.SetTx(spender)
	require.NoError(t, err)

	got, ok, err := a.GetTx(txFk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hashN(1), got.Inputs[0].Previous.Hash)

	meta, ok, err := a.PopulateWithoutMetadata(hashN(1), 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 5000000000, meta.OutputValue)

	coinbaseFk, ok, err := a.ToTx(hashN(1))
	require.NoError(t, err)
	require.True(t, ok)

	spenders, err := a.GetSpenders(coinbaseFk, 0)
	require.NoError(t, err)
	require.Len(t, spenders, 1)
	require.Equal(t, hashN(2), spenders[0].Spender)
}
