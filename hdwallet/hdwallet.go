// Package hdwallet implements BIP-39 mnemonic handling and BIP-32 key
// derivation for the bridge's two distinct key families: the
// BIP-44-shaped asset-lock key and the DIP-0013 identity keys.
//
// Derivation itself is driven through btcutil/hdkeychain, the same way
// the teacher's lightweight-wallet/keyring.KeyRing calls
// hdkeychain.NewMaster and chains .Derive one level at a time. The
// derivation math hdkeychain performs is network-independent — it
// never leaves this package as a serialized xprv/xpub, only as a raw
// private-key scalar — so the *chaincfg.Params passed to NewMaster is
// a fixed placeholder (mainnet) exactly the way the teacher passes a
// stock chaincfg.Params it happens to have registered; Dash-specific
// formatting (WIF/address version bytes) lives in keyops, not here.
package hdwallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/keychain"
	"github.com/tyler-smith/go-bip39"

	"github.com/thephez/dash-bridge/bridgeerrors"
)

// HardenedOffset is BIP-32's hardened child index origin (2^31).
const HardenedOffset uint32 = 0x80000000

// Key-family labels, used only for logging/backup annotation — derived
// keys never share a sequential index counter the way the teacher's
// KeyRing.familyIndexes does, since every index in our two paths is a
// pure function of (mnemonic, network, identityIndex, keyIndex).
const (
	KeyFamilyAssetLock keychain.KeyFamily = 0
	KeyFamilyIdentity  keychain.KeyFamily = 1
)

// ExtendedKey wraps a hdkeychain.ExtendedKey, the BIP-32 state this
// package chains one derivation level at a time.
type ExtendedKey struct {
	key *hdkeychain.ExtendedKey
}

// NewMnemonic generates a fresh BIP-39 mnemonic. entropyBits must be
// 128 (12 words) or 256 (24 words).
func NewMnemonic(entropyBits int) (string, error) {
	if entropyBits != 128 && entropyBits != 256 {
		return "", bridgeerrors.NewCryptoError("new-mnemonic",
			fmt.Errorf("unsupported entropy size %d", entropyBits))
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", bridgeerrors.NewCryptoError("new-mnemonic", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", bridgeerrors.NewCryptoError("new-mnemonic", err)
	}

	return mnemonic, nil
}

// SeedFromMnemonic validates mnemonic's checksum and derives the
// 64-byte BIP-39 seed (PBKDF2-HMAC-SHA512, "mnemonic"+passphrase, 2048
// rounds), matching §4.3 exactly.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, bridgeerrors.ErrInvalidMnemonic
	}
	return bip39.NewSeed(mnemonic, passphrase), nil
}

// NewMasterKey derives the BIP-32 master extended key from a seed, the
// way hdkeychain.NewMaster does internally (HMAC-SHA512("Bitcoin
// seed", seed)).
func NewMasterKey(seed []byte) (*ExtendedKey, error) {
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, bridgeerrors.NewCryptoError("new-master-key", err)
	}
	return &ExtendedKey{key: key}, nil
}

// Child derives the child at the given raw BIP-32 index (the caller
// sets the hardened bit via HardenedOffset when required). On the
// rare invalid-child case the caller should retry at index+1, per
// hdkeychain.Derive's own contract.
func (k *ExtendedKey) Child(index uint32) (*ExtendedKey, error) {
	child, err := k.key.Derive(index)
	if err != nil {
		return nil, bridgeerrors.NewCryptoError("derive-child", err)
	}
	return &ExtendedKey{key: child}, nil
}

// DerivePath walks the extended key through every index in path, in
// order, returning the final child key.
func (k *ExtendedKey) DerivePath(path []uint32) (*ExtendedKey, error) {
	cur := k
	for _, idx := range path {
		next, err := cur.Child(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// PrivKeyBytes returns the raw 32-byte secp256k1 private scalar this
// extended key holds.
func (k *ExtendedKey) PrivKeyBytes() ([32]byte, error) {
	priv, err := k.key.ECPrivKey()
	if err != nil {
		return [32]byte{}, bridgeerrors.NewCryptoError("ec-priv-key", err)
	}
	var out [32]byte
	copy(out[:], priv.Serialize())
	return out, nil
}

// AssetLockPath returns the BIP-44-shaped derivation path for the
// asset-lock key: m/44'/{coinType}'/0'/0/0.
func AssetLockPath(coinType uint32) []uint32 {
	return []uint32{
		HardenedOffset + 44,
		HardenedOffset + coinType,
		HardenedOffset + 0,
		0,
		0,
	}
}

// IdentityKeyPath returns the DIP-0013 derivation path for an identity
// key: m/9'/{coinType}'/5'/0'/0'/{identityIndex}'/{keyIndex}'.
//
// Every level is hardened; this is load-bearing (see spec §9) for
// compatibility with other layer-2 wallets recovering from the same
// mnemonic — do not simplify it to a shorter or partially-hardened
// path.
func IdentityKeyPath(coinType, identityIndex, keyIndex uint32) []uint32 {
	return []uint32{
		HardenedOffset + 9,
		HardenedOffset + coinType,
		HardenedOffset + 5,
		HardenedOffset + 0,
		HardenedOffset + 0,
		HardenedOffset + identityIndex,
		HardenedOffset + keyIndex,
	}
}

// FormatPath renders path in the conventional "m/44'/5'/0'/0/0" form,
// for display and for the key-backup JSON's derivationPath field.
func FormatPath(path []uint32) string {
	out := "m"
	for _, idx := range path {
		if idx >= HardenedOffset {
			out += fmt.Sprintf("/%d'", idx-HardenedOffset)
		} else {
			out += fmt.Sprintf("/%d", idx)
		}
	}
	return out
}
