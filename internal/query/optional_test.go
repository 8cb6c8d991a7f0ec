package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/config"
	"github.com/utxoarchive/archive/errcode"
	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/store"
)

func optionalTestConfig(t *testing.T) config.Config {
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
		Address:        small,
		AddressBits:    4,
		NeutrinoBits:   4,
	}
}

func newOptionalArchive(t *testing.T) *Archive {
	t.Helper()
	cfg := optionalTestConfig(t)
	s := store.New(cfg, nil)
	require.NoError(t, s.Open())
	t.Cleanup(func() { s.Close() })
	return New(s)
}

func TestAddressIndexDisabledByDefault(t *testing.T) {
	cfg := optionalTestConfig(t)
	cfg.AddressBits = 0
	s := store.New(cfg, nil)
	require.NoError(t, s.Open())
	defer s.Close()
	a := New(s)

	require.False(t, a.AddressIndexEnabled())
	err := a.IndexAddress(keys.Hash32{}, linkage.Link(0))
	require.Equal(t, errcode.Code(errcode.Unassociated), errcode.Cause(err))
}

func TestAddressIndexRoundTrip(t *testing.T) {
	a := newOptionalArchive(t)
	require.True(t, a.AddressIndexEnabled())

	var scriptHash keys.Hash32
	scriptHash[0] = 0xAB

	require.NoError(t, a.IndexAddress(scriptHash, linkage.Link(10)))
	require.NoError(t, a.IndexAddress(scriptHash, linkage.Link(20)))

	outputs, err := a.GetOutputsByAddress(scriptHash)
	require.NoError(t, err)
	require.ElementsMatch(t, []linkage.Link{10, 20}, outputs)

	// Second lookup exercises the postings cache path.
	outputs, err = a.GetOutputsByAddress(scriptHash)
	require.NoError(t, err)
	require.ElementsMatch(t, []linkage.Link{10, 20}, outputs)
}

func TestFilterIndexRoundTrip(t *testing.T) {
	a := newOptionalArchive(t)
	require.True(t, a.FilterIndexEnabled())

	var filterHash, filterHead keys.Hash32
	filterHash[0] = 1
	filterHead[0] = 2
	body := []byte{0xde, 0xad, 0xbe, 0xef}

	require.NoError(t, a.SetFilter(linkage.Link(3), filterHash, filterHead, body))

	bk, gotBody, ok, err := a.GetFilter(linkage.Link(3))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, filterHash, bk.FilterHash)
	require.Equal(t, filterHead, bk.FilterHead)
	require.Equal(t, body, gotBody)
}

func TestFilterIndexDisabledByDefault(t *testing.T) {
	cfg := optionalTestConfig(t)
	cfg.NeutrinoBits = 0
	s := store.New(cfg, nil)
	require.NoError(t, s.Open())
	defer s.Close()
	a := New(s)

	require.False(t, a.FilterIndexEnabled())
	_, _, ok, err := a.GetFilter(linkage.Link(0))
	require.NoError(t, err)
	require.False(t, ok)
}
