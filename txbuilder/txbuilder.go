// Package txbuilder constructs the Type 8 asset-lock special
// transaction from a single funding UTXO and a single asset-lock
// public key, and serializes it to the exact wire format Dash Core
// expects for a special transaction.
//
// Wire layout follows btcd/wire's MsgTx conventions (compact-size
// counts, little-endian fixed-width fields) extended with Dash's
// special-transaction trailer (a version field that packs the tx type
// into its high 16 bits, plus a length-prefixed extra payload) — the
// same layout the teacher relies on implicitly whenever it serializes
// a *wire.MsgTx for broadcast.
package txbuilder

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/hashutil"
	"github.com/thephez/dash-bridge/script"
)

// AssetLockTxVersion and AssetLockTxType are fixed for every
// transaction this package builds.
const (
	AssetLockTxVersion = int32(3)
	AssetLockTxType    = int32(8)
	SequenceFinal      = uint32(0xffffffff)
	SighashAll         = uint32(1)
)

// OutPoint references a previous transaction output.
type OutPoint struct {
	// Hash is the internal (non-reversed) transaction hash, the same
	// representation chainhash.Hash stores internally for Bitcoin and
	// Bitcoin-fork txids.
	Hash chainhash.Hash
	Vout uint32
}

// TxIn is a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	ScriptSig        []byte
	Sequence         uint32
}

// TxOut is a transaction output.
type TxOut struct {
	Value        int64
	ScriptPubKey []byte
}

// AssetLockPayload is the Type 8 special-transaction extra payload.
type AssetLockPayload struct {
	Version       uint8
	CreditOutputs []TxOut
}

// AssetLockTransaction is the fully-assembled Type 8 transaction.
type AssetLockTransaction struct {
	Version      int32
	TxType       int32
	Vin          []TxIn
	Vout         []TxOut
	LockTime     uint32
	ExtraPayload AssetLockPayload
}

// UTXO is the funding input this builder spends.
type UTXO struct {
	// Txid is the display (reversed, hex) transaction id.
	Txid   string
	Vout   uint32
	Value  int64
	Script []byte
}

// Build constructs the asset-lock transaction spending utxo, burning
// lockAmount = utxo.Value - feeDuffs into an OP_RETURN output and
// crediting the same amount to a P2PKH output paying assetLockPubKey's
// hash160. It fails with InsufficientFunds if lockAmount <= 0.
func Build(utxo UTXO, assetLockPubKey []byte, feeDuffs int64) (*AssetLockTransaction, error) {
	lockAmount := utxo.Value - feeDuffs
	if lockAmount <= 0 {
		return nil, &bridgeerrors.InsufficientFunds{UTXOValue: utxo.Value, Fee: feeDuffs}
	}

	internalHash, err := chainhash.NewHashFromStr(utxo.Txid)
	if err != nil {
		return nil, bridgeerrors.NewCodecError("txbuilder-decode-txid", err)
	}

	pubKeyHash := hashutil.Hash160(assetLockPubKey)

	creditOutput := TxOut{
		Value:        lockAmount,
		ScriptPubKey: script.P2PKHScript(pubKeyHash),
	}

	tx := &AssetLockTransaction{
		Version: AssetLockTxVersion,
		TxType:  AssetLockTxType,
		Vin: []TxIn{{
			PreviousOutPoint: OutPoint{Hash: *internalHash, Vout: utxo.Vout},
			ScriptSig:        nil,
			Sequence:         SequenceFinal,
		}},
		Vout: []TxOut{{
			Value:        lockAmount,
			ScriptPubKey: script.NullDataScript(),
		}},
		LockTime: 0,
		ExtraPayload: AssetLockPayload{
			Version:       1,
			CreditOutputs: []TxOut{creditOutput},
		},
	}

	return tx, nil
}

// Serialize encodes tx to its wire byte representation.
func Serialize(tx *AssetLockTransaction) []byte {
	buf := make([]byte, 0, 256)

	versionField := uint32(tx.Version) | (uint32(tx.TxType) << 16)
	buf = codec.PutUint32LE(buf, versionField)

	buf = codec.WriteCompactSize(buf, uint64(len(tx.Vin)))
	for _, in := range tx.Vin {
		buf = serializeTxIn(buf, in)
	}

	buf = codec.WriteCompactSize(buf, uint64(len(tx.Vout)))
	for _, out := range tx.Vout {
		buf = serializeTxOut(buf, out)
	}

	buf = codec.PutUint32LE(buf, tx.LockTime)

	if tx.TxType != 0 {
		payload := serializePayload(tx.ExtraPayload)
		buf = codec.PutVarBytes(buf, payload)
	}

	return buf
}

func serializeTxIn(buf []byte, in TxIn) []byte {
	buf = append(buf, in.PreviousOutPoint.Hash[:]...)
	buf = codec.PutUint32LE(buf, in.PreviousOutPoint.Vout)
	buf = codec.PutVarBytes(buf, in.ScriptSig)
	buf = codec.PutUint32LE(buf, in.Sequence)
	return buf
}

func serializeTxOut(buf []byte, out TxOut) []byte {
	buf = codec.PutInt64LE(buf, out.Value)
	buf = codec.PutVarBytes(buf, out.ScriptPubKey)
	return buf
}

func serializePayload(p AssetLockPayload) []byte {
	buf := make([]byte, 0, 64)
	buf = codec.PutUint8(buf, p.Version)
	buf = codec.WriteCompactSize(buf, uint64(len(p.CreditOutputs)))
	for _, out := range p.CreditOutputs {
		buf = serializeTxOut(buf, out)
	}
	return buf
}

// Txid computes the display-order transaction id:
// reverse(hash256(serialize(tx))), via chainhash.Hash's own display
// convention.
func Txid(tx *AssetLockTransaction) string {
	return chainhash.Hash(hashutil.Hash256(Serialize(tx))).String()
}
