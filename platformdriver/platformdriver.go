// Package platformdriver defines the contract over the layer-2
// platform SDK: identity creation, top-up, key management, and credit
// transfer. The SDK itself is an external, closed-over native
// collaborator (per spec §9's "SDK as external collaborator" design
// note); this package expresses that collaborator as a Go interface so
// the bridge core can be tested against an in-memory fake instead of a
// live SDK connection, the same way the teacher's tapgarden.KeyRing /
// tapgarden.ChainBridge interfaces let lightweight-wallet test without
// a live chain backend.
package platformdriver

import (
	"context"

	"github.com/thephez/dash-bridge/keyops"
	"github.com/thephez/dash-bridge/proofbuilder"
)

// IdentityKey is one entry of an identity's public-key list.
type IdentityKey struct {
	ID            uint32
	Name          string
	Type          keyops.KeyType
	Purpose       keyops.Purpose
	SecurityLevel keyops.SecurityLevel
	PublicKey     []byte
	// DisabledAt is the Unix-ms timestamp the key was disabled at, or
	// zero if the key is still active.
	DisabledAt int64
}

// IdentityShell is the subset of identity state the bridge core
// needs: the id and its public-key list.
type IdentityShell struct {
	ID       string
	Revision uint64
	Keys     []IdentityKey
}

// Signer holds the private-key material needed to produce
// key-ownership-proof sub-structures for a state transition. An empty
// Signer (no keys) is valid for fundFromAssetLock calls that target a
// third-party platform address, where the recipient need not sign.
type Signer struct {
	Keys map[uint32]*keyops.KeyPair
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Identity            IdentityShell
	Proof               proofbuilder.AssetLockProof
	AssetLockPrivateKey *keyops.KeyPair
	Signer              Signer
}

// TopUpRequest is the input to TopUp.
type TopUpRequest struct {
	Identity            IdentityShell
	Proof               proofbuilder.AssetLockProof
	AssetLockPrivateKey *keyops.KeyPair
}

// UpdateRequest is the input to Update.
type UpdateRequest struct {
	Identity          IdentityShell
	Signer            Signer
	AddPublicKeys     []IdentityKey
	DisablePublicKeys []uint32
}

// FundOutput describes one credit destination for
// FundFromAssetLock: either a bech32m platform address the caller
// controls (Signer carries that key) or a third-party address
// (Signer is empty).
type FundOutput struct {
	PlatformAddress string
	Amount          int64
}

// FundFromAssetLockRequest is the input to FundFromAssetLock.
type FundFromAssetLockRequest struct {
	Proof               proofbuilder.AssetLockProof
	AssetLockPrivateKey *keyops.KeyPair
	Outputs             []FundOutput
	Signer              Signer
}

// DpnsRegisterRequest is the input to DpnsRegisterName.
type DpnsRegisterRequest struct {
	Label            string
	Identity         IdentityShell
	IdentityKey      IdentityKey
	Signer           Signer
	PreorderCallback func()
}

// Driver is the PlatformDriver contract. Every method may fail with a
// bridgeerrors.SdkError; Create, TopUp, Update, and FundFromAssetLock
// are expected to be wrapped by the caller in retry.WithRetry since
// the underlying transport is best-effort.
type Driver interface {
	Create(ctx context.Context, req CreateRequest) (identityID string, err error)
	TopUp(ctx context.Context, req TopUpRequest) error
	Update(ctx context.Context, req UpdateRequest) error
	FundFromAssetLock(ctx context.Context, req FundFromAssetLockRequest) error

	FetchIdentity(ctx context.Context, id string) (*IdentityShell, error)

	DpnsIsNameAvailable(ctx context.Context, label string) (bool, error)
	DpnsRegisterName(ctx context.Context, req DpnsRegisterRequest) error
}
