// Package script assembles the two output scripts the asset-lock
// transaction needs: a bare OP_RETURN burn script and a standard
// P2PKH credit script. It intentionally does not pull in
// btcsuite/btcd/txscript's script *builder* — the two scripts this
// bridge ever produces are fixed-shape enough to hand-assemble, the
// way txbuilder.go in the teacher hand-assembles its handful of
// known script shapes rather than running the general-purpose
// txscript engine for them. It does reuse txscript's own opcode
// constants rather than re-declaring the byte values.
package script

import "github.com/btcsuite/btcd/txscript"

// Opcodes used by the two script shapes this package builds, aliased
// from txscript so the byte values are never duplicated by hand.
const (
	OpDup         = txscript.OP_DUP
	OpHash160     = txscript.OP_HASH160
	OpEqualVerify = txscript.OP_EQUALVERIFY
	OpCheckSig    = txscript.OP_CHECKSIG
	OpReturn      = txscript.OP_RETURN
)

// NullDataScript returns the asset-lock burn output's scriptPubKey:
// OP_RETURN followed by a zero-length push (0x00), matching the
// wire-level Type 8 convention of carrying no payload in the burn
// output itself (the credit amount instead rides in the extra
// payload).
func NullDataScript() []byte {
	return []byte{OpReturn, 0x00}
}

// P2PKHScript returns the standard pay-to-pubkey-hash scriptPubKey for
// a 20-byte hash160: `76 a9 14 <hash> 88 ac`.
func P2PKHScript(pubKeyHash [20]byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, OpDup, OpHash160, 0x14)
	out = append(out, pubKeyHash[:]...)
	out = append(out, OpEqualVerify, OpCheckSig)
	return out
}

// PushData returns a minimal-push encoding of data for use inside a
// scriptSig: a single length byte followed by data, valid for the
// signature and compressed-pubkey pushes this bridge ever builds
// (both well under the 76-byte OP_PUSHDATA1 threshold).
func PushData(data []byte) []byte {
	out := make([]byte, 0, 1+len(data))
	out = append(out, byte(len(data)))
	out = append(out, data...)
	return out
}

// IsP2PKH reports whether script matches the standard P2PKH shape,
// returning the embedded pubkey hash when it does.
func IsP2PKH(s []byte) (hash [20]byte, ok bool) {
	if len(s) != 25 {
		return hash, false
	}
	if s[0] != OpDup || s[1] != OpHash160 || s[2] != 0x14 {
		return hash, false
	}
	if s[23] != OpEqualVerify || s[24] != OpCheckSig {
		return hash, false
	}
	copy(hash[:], s[3:23])
	return hash, true
}
