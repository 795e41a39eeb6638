// Package proofbuilder assembles the AssetLockProof triple the
// PlatformDriver needs to credit an identity: the signed transaction
// bytes, the InstantSend lock bytes, and the output index the credit
// output lives at.
//
// Grounded on tappsbt/proof.go's PacketFromProofs, which binds a
// proof's anchor transaction, inclusion witness, and output index into
// one value the rest of the pipeline treats opaquely; this package
// does the same binding for the simpler three-field asset-lock proof.
package proofbuilder

import (
	"github.com/thephez/dash-bridge/hashutil"
)

// AssetLockProof is the triple passed to PlatformDriver calls. The
// identity id is a deterministic function of these exact bytes — see
// CreateIdentityId — so callers must use precisely the bytes emitted
// by txbuilder.Serialize and islockclient's decoded lock, not a
// re-derived or reformatted copy.
type AssetLockProof struct {
	TxBytes     []byte
	IslockBytes []byte
	OutputIndex uint32
}

// Build assembles the proof triple. outputIndex is always 0 for this
// bridge: the credit output is the sole entry in the extra payload's
// CreditOutputs.
func Build(signedTxBytes, islockBytes []byte, outputIndex uint32) AssetLockProof {
	return AssetLockProof{
		TxBytes:     signedTxBytes,
		IslockBytes: islockBytes,
		OutputIndex: outputIndex,
	}
}

// CreateIdentityId derives the deterministic identity id bound to this
// proof: hash256(txBytes || islockBytes || outputIndex LE). Two
// proofs built from bytewise-identical inputs always yield the same
// id; changing any one byte of any field changes it.
func (p AssetLockProof) CreateIdentityId() [32]byte {
	buf := make([]byte, 0, len(p.TxBytes)+len(p.IslockBytes)+4)
	buf = append(buf, p.TxBytes...)
	buf = append(buf, p.IslockBytes...)
	buf = append(buf,
		byte(p.OutputIndex), byte(p.OutputIndex>>8),
		byte(p.OutputIndex>>16), byte(p.OutputIndex>>24))

	return hashutil.Hash256(buf)
}
