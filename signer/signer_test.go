package signer

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/script"
	"github.com/thephez/dash-bridge/txbuilder"
)

func buildTestTx(t *testing.T) (*txbuilder.AssetLockTransaction, *btcec.PrivateKey, []byte) {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pubKeyHash := [20]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	previousScript := script.P2PKHScript(pubKeyHash)

	utxo := txbuilder.UTXO{
		Txid:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b85",
		Vout:  0,
		Value: 100000,
	}

	tx, err := txbuilder.Build(utxo, priv.PubKey().SerializeCompressed(), 1000)
	require.NoError(t, err)

	return tx, priv, previousScript
}

func TestSignInputProducesVerifiableSignature(t *testing.T) {
	t.Parallel()

	tx, priv, previousScript := buildTestTx(t)

	scriptSig, err := SignInput(tx, 0, previousScript, priv)
	require.NoError(t, err)
	require.NotEmpty(t, scriptSig)

	sigLen := int(scriptSig[0])
	sigWithHashType := scriptSig[1 : 1+sigLen]
	derSig := sigWithHashType[:len(sigWithHashType)-1]
	require.Equal(t, byte(SighashAll), sigWithHashType[len(sigWithHashType)-1])

	pubKeyStart := 1 + sigLen
	pubKeyLen := int(scriptSig[pubKeyStart])
	pubKeyBytes := scriptSig[pubKeyStart+1 : pubKeyStart+1+pubKeyLen]
	require.Equal(t, priv.PubKey().SerializeCompressed(), pubKeyBytes)

	parsedSig, err := ecdsa.ParseDERSignature(derSig)
	require.NoError(t, err)

	sighash, err := Sighash(tx, 0, previousScript)
	require.NoError(t, err)

	require.True(t, parsedSig.Verify(sighash[:], priv.PubKey()))
}

func TestSignInputDeterministic(t *testing.T) {
	t.Parallel()

	tx, priv, previousScript := buildTestTx(t)

	sig1, err := SignInput(tx, 0, previousScript, priv)
	require.NoError(t, err)
	sig2, err := SignInput(tx, 0, previousScript, priv)
	require.NoError(t, err)

	require.Equal(t, sig1, sig2)
}

func TestSignTransactionFillsScriptSig(t *testing.T) {
	t.Parallel()

	tx, priv, previousScript := buildTestTx(t)

	signed, err := SignTransaction(tx, [][]byte{previousScript}, priv)
	require.NoError(t, err)
	require.NotEmpty(t, signed.Vin[0].ScriptSig)

	// Original must remain unsigned.
	require.Nil(t, tx.Vin[0].ScriptSig)
}

func TestSignTransactionRejectsMismatchedScriptCount(t *testing.T) {
	t.Parallel()

	tx, priv, _ := buildTestTx(t)

	_, err := SignTransaction(tx, nil, priv)
	require.Error(t, err)
}

func TestSighashPreimageRejectsOutOfRangeIndex(t *testing.T) {
	t.Parallel()

	tx, _, previousScript := buildTestTx(t)

	_, err := SighashPreimage(tx, 5, previousScript)
	require.Error(t, err)
}
