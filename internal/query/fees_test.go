package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/domain"
)

func TestFeeAndFeeRateForSpendingTx(t *testing.T) {
	a := newCoreArchive(t)
	_, err := a.SetBlock(genesisBlock())
	require.NoError(t, err)

	spender := domain.Transaction{
		Hash:        hashN(2),
		WitlessSize: 250,
		WitnessSize: 250,
		Inputs: []domain.Input{
			{Previous: domain.Point{Hash: hashN(1), Index: 0}},
		},
		Outputs: []domain.Output{{Value: 4999990000, Script: []byte{0x51}}},
	}
	txFk, err := a.SetTx(spender)
	require.NoError(t, err)

	fee, err := a.Fee(txFk)
	require.NoError(t, err)
	require.EqualValues(t, 10000, fee)

	rate, err := a.FeeRate(txFk)
	require.NoError(t, err)
	require.EqualValues(t, fee/250, rate)
}

func TestFeeOfCoinbaseIsZero(t *testing.T) {
	a := newCoreArchive(t)
	headerFk, err := a.SetBlock(genesisBlock())
	require.NoError(t, err)
	links, err := a.GetTxKeys(headerFk)
	require.NoError(t, err)
	require.Len(t, links, 1)

	fee, err := a.Fee(links[0])
	require.NoError(t, err)
	require.EqualValues(t, 0, fee)
}
