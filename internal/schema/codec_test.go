package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/utxoarchive/archive/internal/keys"
	"github.com/utxoarchive/archive/internal/linkage"
)

func TestHeaderRoundTrip(t *testing.T) {
	codec := HeaderCodec()
	h := Header{
		ParentFk:      linkage.Link(7),
		Flags:         0xdeadbeef,
		Height:        123456,
		MTP:           999,
		Version:       2,
		Time:          1700000000,
		Bits:          0x1d00ffff,
		Nonce:         42,
		MilestoneFlag: true,
	}
	h.MerkleRoot[0] = 0xaa
	h.MerkleRoot[31] = 0xbb

	buf := codec.Marshal(h)
	require.Len(t, buf, codec.Size)

	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, codec.Size, n)
	require.Equal(t, h, got)
}

func TestHeaderHeightIsTruncatedTo24Bits(t *testing.T) {
	codec := HeaderCodec()
	h := Header{Height: 0x1ffffff}
	buf := codec.Marshal(h)
	got, _, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.EqualValues(t, 0xffffff, got.Height)
}

func TestTxRoundTrip(t *testing.T) {
	codec := TxCodec()
	tx := Tx{
		Coinbase:    true,
		WitlessSize: 250,
		WitnessSize: 400,
		Locktime:    0,
		Version:     2,
		InsCount:    1,
		OutsCount:   2,
		InsFk:       linkage.Link(5),
		OutsFk:      linkage.Link(9),
	}
	buf := codec.Marshal(tx)
	require.Len(t, buf, codec.Size)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, codec.Size, n)
	require.Equal(t, tx, got)
}

func TestOutputRoundTrip(t *testing.T) {
	codec := OutputCodec()
	o := Output{Value: 5000000000, Script: []byte{0x76, 0xa9, 0x14}, ParentFk: 99}
	buf := codec.Marshal(o)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, o, got)
}

func TestInputRoundTrip(t *testing.T) {
	codec := InputCodec()
	in := Input{
		Script:     []byte{0x01, 0x02},
		Witness:    []byte{0x03, 0x04, 0x05},
		Sequence:   0xfffffffe,
		PointFk:    10,
		PointIndex: 1,
		ParentFk:   20,
	}
	buf := codec.Marshal(in)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, in, got)
}

func TestTxsRoundTrip(t *testing.T) {
	codec := TxsCodec()
	txs := Txs{Tx: []linkage.Link{1, 2, 3}}
	buf := codec.Marshal(txs)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, txs, got)
}

func TestStrongTxRoundTrip(t *testing.T) {
	codec := StrongTxCodec()
	for _, strong := range []bool{true, false} {
		s := StrongTx{BlockFk: linkage.Link(0x123456 &^ strongTxBlockFkBit), Strong: strong}
		buf := codec.Marshal(s)
		require.Len(t, buf, codec.Size)
		got, _, err := codec.Unmarshal(buf)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestPrevoutRoundTrip(t *testing.T) {
	codec := PrevoutCodec()
	p := Prevout{Coinbase: false, ParentBlockHeight: 700000, OutputFk: 555}
	buf := codec.Marshal(p)
	got, _, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestValidatedBkRoundTrip(t *testing.T) {
	codec := ValidatedBkCodec()
	v := ValidatedBk{Code: 3, Fee: 123456789}
	buf := codec.Marshal(v)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, v, got)
}

func TestValidatedTxRoundTrip(t *testing.T) {
	codec := ValidatedTxCodec()
	v := ValidatedTx{Flags: 7, Height: 800000, MTP: 1700000000, Code: 1, Fee: 2000, Sigops: 80}
	buf := codec.Marshal(v)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, v, got)
}

func TestAddressRoundTrip(t *testing.T) {
	codec := AddressCodec()
	e := AddressEntry{OutputFk: 0xcafebabe}
	buf := codec.Marshal(e)
	got, _, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, e, got)
}

func TestFilterBkRoundTrip(t *testing.T) {
	codec := FilterBkCodec()
	var f FilterBk
	f.FilterHash[0] = 1
	f.FilterHead[31] = 2
	buf := codec.Marshal(f)
	got, _, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFilterTxRoundTrip(t *testing.T) {
	codec := FilterTxCodec()
	f := FilterTx{Filter: []byte{1, 2, 3, 4, 5}}
	buf := codec.Marshal(f)
	got, n, err := codec.Unmarshal(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, f, got)
}

func TestPostingsCacheFillAndLookup(t *testing.T) {
	c := NewPostingsCache()
	var h keys.Hash32
	h[0] = 9

	_, ok := c.Lookup(h)
	require.False(t, ok)

	bm := c.Fill(h, []uint32{1, 2, 3})
	require.True(t, bm.Contains(2))

	got, ok := c.Lookup(h)
	require.True(t, ok)
	require.True(t, got.Contains(3))

	c.Invalidate(h)
	_, ok = c.Lookup(h)
	require.False(t, ok)
}
