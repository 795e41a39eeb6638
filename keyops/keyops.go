// Package keyops implements the bridge's key-material primitives:
// random keypair generation, address/WIF encoding, and the
// purpose/security-level checks that gate identity-key operations.
//
// All signing itself lives in package signer; keyops only deals with
// key material and its encodings.
package keyops

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/dashnet"
	"github.com/thephez/dash-bridge/hashutil"
)

// KeyType mirrors the two on-chain identity public-key encodings.
type KeyType int

const (
	KeyTypeSECP256K1 KeyType = iota
	KeyTypeHash160
)

// Purpose is an identity key's intended usage.
type Purpose int

const (
	PurposeAuthentication Purpose = iota
	PurposeEncryption
	PurposeDecryption
	PurposeTransfer
	PurposeVoting
	PurposeOwner
)

// SecurityLevel is an identity key's required security tier. Lower
// numeric value means higher privilege, matching the Platform
// convention (MASTER = 0).
type SecurityLevel int

const (
	SecurityLevelMaster SecurityLevel = iota
	SecurityLevelCritical
	SecurityLevelHigh
	SecurityLevelMedium
)

// KeyPair is a secp256k1 private/public keypair.
type KeyPair struct {
	Private *btcec.PrivateKey
	Public  *btcec.PublicKey
}

// GenerateKeyPair draws a cryptographically random 32-byte scalar in
// [1, n-1] and derives its compressed public key.
func GenerateKeyPair() (*KeyPair, error) {
	var buf [32]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, bridgeerrors.NewCryptoError("generate-key-pair", err)
		}

		priv, pub := btcec.PrivKeyFromBytes(buf[:])
		if !bytes.Equal(priv.Serialize(), make([]byte, 32)) {
			return &KeyPair{Private: priv, Public: pub}, nil
		}
		// all-zero scalar: astronomically unlikely, retry.
	}
}

// KeyPairFromScalar builds a KeyPair from a raw 32-byte private
// scalar, as produced by hdwallet's path derivation.
func KeyPairFromScalar(scalar [32]byte) *KeyPair {
	priv, pub := btcec.PrivKeyFromBytes(scalar[:])
	return &KeyPair{Private: priv, Public: pub}
}

// PublicKeyToAddress computes base58check(net.AddressVersion ||
// hash160(compressedPubKey)).
func PublicKeyToAddress(pub *btcec.PublicKey, net dashnet.Params) string {
	h := hashutil.Hash160(pub.SerializeCompressed())
	return codec.Base58CheckEncode(net.AddressVersion, h[:])
}

// PrivateKeyToWif encodes sk as base58check(net.WIFPrefix || sk ||
// (compressed ? 0x01 : "")).
func PrivateKeyToWif(sk *btcec.PrivateKey, net dashnet.Params, compressed bool) string {
	payload := make([]byte, 0, 33)
	payload = append(payload, sk.Serialize()...)
	if compressed {
		payload = append(payload, 0x01)
	}
	return codec.Base58CheckEncode(net.WIFPrefix, payload)
}

// DecodedWif is the result of decoding a WIF private key string.
type DecodedWif struct {
	PrivateKey *btcec.PrivateKey
	Compressed bool
	Prefix     byte
}

// WifToPrivateKey is the inverse of PrivateKeyToWif. It fails with
// ErrInvalidWif on a length outside {33, 34} bytes or a bad checksum.
// It does not check the prefix against any particular network — the
// caller does that (see ValidateNetworkPrefix) since a WIF alone
// doesn't carry a network tag beyond its single prefix byte, which
// collides across unrelated networks in principle.
func WifToPrivateKey(wif string) (*DecodedWif, error) {
	prefix, payload, err := codec.Base58CheckDecode(wif)
	if err != nil {
		return nil, bridgeerrors.ErrInvalidWif
	}

	var compressed bool
	switch len(payload) {
	case 32:
		compressed = false
	case 33:
		if payload[32] != 0x01 {
			return nil, bridgeerrors.ErrInvalidWif
		}
		compressed = true
	default:
		return nil, bridgeerrors.ErrInvalidWif
	}

	priv, _ := btcec.PrivKeyFromBytes(payload[:32])

	return &DecodedWif{
		PrivateKey: priv,
		Compressed: compressed,
		Prefix:     prefix,
	}, nil
}

// ValidateNetworkPrefix rejects a decoded WIF whose prefix byte does
// not match net.
func ValidateNetworkPrefix(d *DecodedWif, net dashnet.Params) error {
	if d.Prefix != net.WIFPrefix {
		return bridgeerrors.ErrWifNetworkMismatch
	}
	return nil
}

// OnChainPublicKey is the subset of IdentityKey fields findMatchingKey
// needs to compare a WIF against the identity's registered keys.
type OnChainPublicKey struct {
	KeyID         uint32
	Type          KeyType
	Purpose       Purpose
	SecurityLevel SecurityLevel
	// Payload is either the 33-byte compressed pubkey (SECP256K1) or
	// the 20-byte hash160 of it (Hash160), matching Type.
	Payload []byte
}

// MatchedKey is what FindMatchingKey returns on success.
type MatchedKey struct {
	KeyID         uint32
	Purpose       Purpose
	SecurityLevel SecurityLevel
	PublicKey     *btcec.PublicKey
}

// FindMatchingKey decodes wif, validates its network prefix, then
// compares its derived public key (or hash160 of it) bytewise against
// every key in keys, returning the first match. It fails with
// ErrWifNetworkMismatch or ErrNoMatchingKey.
func FindMatchingKey(wif string, keys []OnChainPublicKey, net dashnet.Params) (*MatchedKey, error) {
	decoded, err := WifToPrivateKey(wif)
	if err != nil {
		return nil, err
	}
	if err := ValidateNetworkPrefix(decoded, net); err != nil {
		return nil, err
	}

	pub := decoded.PrivateKey.PubKey()
	compressed := pub.SerializeCompressed()
	hashed := hashutil.Hash160(compressed)

	for _, k := range keys {
		switch k.Type {
		case KeyTypeSECP256K1:
			if bytes.Equal(k.Payload, compressed) {
				return &MatchedKey{KeyID: k.KeyID, Purpose: k.Purpose, SecurityLevel: k.SecurityLevel, PublicKey: pub}, nil
			}
		case KeyTypeHash160:
			if bytes.Equal(k.Payload, hashed[:]) {
				return &MatchedKey{KeyID: k.KeyID, Purpose: k.Purpose, SecurityLevel: k.SecurityLevel, PublicKey: pub}, nil
			}
		}
	}

	return nil, bridgeerrors.ErrNoMatchingKey
}

// RequireSecurityLevel enforces a truth table entry that allows any
// purpose but requires an exact security level: level must equal
// required (MASTER for identity updates).
func RequireSecurityLevel(level SecurityLevel, required SecurityLevel) error {
	if level != required {
		return fmt.Errorf("%w: have %s, need %s",
			bridgeerrors.ErrKeySecurityLevelNotAllowed, level, required)
	}
	return nil
}

// RequireDpnsKey enforces the DPNS name-registration truth table
// entry: purpose must be AUTHENTICATION, security level must be
// CRITICAL or HIGH.
func RequireDpnsKey(purpose Purpose, level SecurityLevel) error {
	if purpose != PurposeAuthentication {
		return fmt.Errorf("%w: have %s, need AUTHENTICATION",
			bridgeerrors.ErrKeyPurposeNotAllowed, purpose)
	}
	if level != SecurityLevelCritical && level != SecurityLevelHigh {
		return fmt.Errorf("%w: have %s, need CRITICAL or HIGH",
			bridgeerrors.ErrKeySecurityLevelNotAllowed, level)
	}
	return nil
}

func (p Purpose) String() string {
	switch p {
	case PurposeAuthentication:
		return "AUTHENTICATION"
	case PurposeEncryption:
		return "ENCRYPTION"
	case PurposeDecryption:
		return "DECRYPTION"
	case PurposeTransfer:
		return "TRANSFER"
	case PurposeVoting:
		return "VOTING"
	case PurposeOwner:
		return "OWNER"
	default:
		return "UNKNOWN"
	}
}

func (s SecurityLevel) String() string {
	switch s {
	case SecurityLevelMaster:
		return "MASTER"
	case SecurityLevelCritical:
		return "CRITICAL"
	case SecurityLevelHigh:
		return "HIGH"
	case SecurityLevelMedium:
		return "MEDIUM"
	default:
		return "UNKNOWN"
	}
}
