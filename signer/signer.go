// Package signer produces the scriptSig for the asset-lock
// transaction's single input.
//
// Signing follows the same shape as the teacher's
// lightweight-wallet/wallet/btcwallet/psbt.go signP2WPKH: compute a
// sighash preimage, call btcec/v2/ecdsa.Sign (which already gives
// RFC 6979 deterministic k, BIP-62 low-S enforcement, and DER
// encoding), then append the sighash type byte. The preimage shape
// here is the legacy (pre-segwit) one the asset-lock transaction uses
// — modelled on the simpler original (non-witness) sighash the
// teacher's psbt.go falls back to describing for legacy inputs —
// rather than BIP-143's witness sighash, since Type 8 inputs spend a
// plain P2PKH UTXO.
package signer

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/hashutil"
	"github.com/thephez/dash-bridge/script"
	"github.com/thephez/dash-bridge/txbuilder"
)

// SighashAll is the only sighash type the bridge ever uses.
const SighashAll = uint32(1)

// SighashPreimage builds the legacy sighash preimage for input index
// against previousScript (the spent output's scriptPubKey used as
// scriptCode): every input's scriptSig is cleared except index i's,
// which is set to previousScript, then the whole transaction is
// serialized and SIGHASH_ALL is appended as a little-endian u32.
func SighashPreimage(tx *txbuilder.AssetLockTransaction, index int, previousScript []byte) ([]byte, error) {
	if index < 0 || index >= len(tx.Vin) {
		return nil, bridgeerrors.NewCryptoError("sighash-preimage", errIndexOutOfRange(index))
	}

	clone := cloneTx(tx)
	for i := range clone.Vin {
		if i == index {
			clone.Vin[i].ScriptSig = previousScript
		} else {
			clone.Vin[i].ScriptSig = nil
		}
	}

	preimage := txbuilder.Serialize(clone)
	preimage = codec.PutUint32LE(preimage, SighashAll)

	return preimage, nil
}

// Sighash is hash256(SighashPreimage(...)).
func Sighash(tx *txbuilder.AssetLockTransaction, index int, previousScript []byte) ([32]byte, error) {
	preimage, err := SighashPreimage(tx, index, previousScript)
	if err != nil {
		return [32]byte{}, err
	}
	return hashutil.Hash256(preimage), nil
}

// SignInput signs input index of tx, spending an output with
// previousScript, using priv. It returns a complete scriptSig:
// push(DER signature || SIGHASH_ALL) || push(compressed pubkey).
//
// ecdsa.Sign already deterministically chooses k per RFC 6979 and
// enforces the low-S rule (BIP-62) before DER-encoding the result, so
// this function does no signature post-processing of its own.
func SignInput(tx *txbuilder.AssetLockTransaction, index int, previousScript []byte, priv *btcec.PrivateKey) ([]byte, error) {
	sighash, err := Sighash(tx, index, previousScript)
	if err != nil {
		return nil, err
	}

	sig := ecdsa.Sign(priv, sighash[:])

	sigBytes := append(sig.Serialize(), byte(SighashAll))
	pubKeyBytes := priv.PubKey().SerializeCompressed()

	scriptSig := make([]byte, 0, len(sigBytes)+len(pubKeyBytes)+2)
	scriptSig = append(scriptSig, script.PushData(sigBytes)...)
	scriptSig = append(scriptSig, script.PushData(pubKeyBytes)...)

	return scriptSig, nil
}

// SignTransaction iterates every input of tx, taking input i's previous
// scriptPubKey from previousScripts[i], and fills in its scriptSig. The bridge only ever builds single-input
// transactions, so this loop runs once in practice, but the shape
// mirrors the teacher's general multi-input signing loop.
func SignTransaction(tx *txbuilder.AssetLockTransaction, previousScripts [][]byte, priv *btcec.PrivateKey) (*txbuilder.AssetLockTransaction, error) {
	if len(previousScripts) != len(tx.Vin) {
		return nil, bridgeerrors.NewCryptoError("sign-transaction", errScriptCountMismatch(len(previousScripts), len(tx.Vin)))
	}

	signed := cloneTx(tx)
	for i := range signed.Vin {
		scriptSig, err := SignInput(tx, i, previousScripts[i], priv)
		if err != nil {
			return nil, err
		}
		signed.Vin[i].ScriptSig = scriptSig
	}

	return signed, nil
}

func cloneTx(tx *txbuilder.AssetLockTransaction) *txbuilder.AssetLockTransaction {
	clone := *tx

	clone.Vin = make([]txbuilder.TxIn, len(tx.Vin))
	copy(clone.Vin, tx.Vin)

	clone.Vout = make([]txbuilder.TxOut, len(tx.Vout))
	copy(clone.Vout, tx.Vout)

	clone.ExtraPayload.CreditOutputs = make([]txbuilder.TxOut, len(tx.ExtraPayload.CreditOutputs))
	copy(clone.ExtraPayload.CreditOutputs, tx.ExtraPayload.CreditOutputs)

	return &clone
}

type indexOutOfRangeError struct{ index int }

func (e indexOutOfRangeError) Error() string { return "input index out of range" }
func errIndexOutOfRange(i int) error         { return indexOutOfRangeError{index: i} }

type scriptCountMismatchError struct{ got, want int }

func (e scriptCountMismatchError) Error() string {
	return "previous script count does not match input count"
}
func errScriptCountMismatch(got, want int) error {
	return scriptCountMismatchError{got: got, want: want}
}
