package txbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/hashutil"
)

func testUTXO() UTXO {
	return UTXO{
		Txid:  "1111111111111111111111111111111111111111111111111111111111111111111111111111",
		Vout:  0,
		Value: 100000,
	}
}

func validUTXO() UTXO {
	return UTXO{
		Txid:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b85",
		Vout:  1,
		Value: 100000,
	}
}

func dummyPubKey() []byte {
	pk := make([]byte, 33)
	pk[0] = 0x02
	for i := 1; i < 33; i++ {
		pk[i] = byte(i)
	}
	return pk
}

func TestBuildInsufficientFunds(t *testing.T) {
	t.Parallel()

	utxo := validUTXO()
	utxo.Value = 500

	_, err := Build(utxo, dummyPubKey(), 1000)
	require.Error(t, err)
}

func TestBuildAndSerializeShape(t *testing.T) {
	t.Parallel()

	utxo := validUTXO()
	const fee = 1000

	tx, err := Build(utxo, dummyPubKey(), fee)
	require.NoError(t, err)

	require.Equal(t, AssetLockTxVersion, tx.Version)
	require.Equal(t, AssetLockTxType, tx.TxType)
	require.Len(t, tx.Vin, 1)
	require.Len(t, tx.Vout, 1)
	require.Equal(t, utxo.Value-fee, tx.Vout[0].Value)
	require.Equal(t, []byte{0x6a, 0x00}, tx.Vout[0].ScriptPubKey)
	require.Equal(t, SequenceFinal, tx.Vin[0].Sequence)
	require.Nil(t, tx.Vin[0].ScriptSig)

	require.Len(t, tx.ExtraPayload.CreditOutputs, 1)
	require.Equal(t, utxo.Value-fee, tx.ExtraPayload.CreditOutputs[0].Value)
	require.Len(t, tx.ExtraPayload.CreditOutputs[0].ScriptPubKey, 25)

	raw := Serialize(tx)
	require.NotEmpty(t, raw)

	versionField := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	require.Equal(t, uint32(3), versionField&0xffff)
	require.Equal(t, uint32(8), versionField>>16)
}

func TestTxidIsReversedHash256(t *testing.T) {
	t.Parallel()

	utxo := validUTXO()
	tx, err := Build(utxo, dummyPubKey(), 1000)
	require.NoError(t, err)

	txid := Txid(tx)
	require.Len(t, txid, 64)

	decoded, err := codec.DecodeHex(txid)
	require.NoError(t, err)
	require.Len(t, decoded, 32)

	hash := hashutil.Hash256(Serialize(tx))
	require.Equal(t, hashutil.Reverse(hash[:]), decoded)
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()

	utxo := validUTXO()
	pubKey := dummyPubKey()

	tx1, err := Build(utxo, pubKey, 1000)
	require.NoError(t, err)
	tx2, err := Build(utxo, pubKey, 1000)
	require.NoError(t, err)

	require.Equal(t, Serialize(tx1), Serialize(tx2))
	require.Equal(t, Txid(tx1), Txid(tx2))
}

func TestBuildRejectsMalformedTxid(t *testing.T) {
	t.Parallel()

	utxo := testUTXO()
	_, err := Build(utxo, dummyPubKey(), 1000)
	require.Error(t, err)
}
