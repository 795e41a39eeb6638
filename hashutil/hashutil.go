// Package hashutil provides the fixed-width hash primitives the bridge
// core needs: single and double SHA-256, and hash160 (RIPEMD-160 over
// SHA-256), the same construction btcd/btcutil uses for P2PKH addresses.
package hashutil

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // still the correct primitive for hash160
)

// Sha256 returns the single SHA-256 digest of b.
func Sha256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Hash256 returns the double SHA-256 digest of b, used for txids and
// sighash preimages.
func Hash256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// Hash160 returns RIPEMD-160(SHA-256(b)), used to derive P2PKH pubkey
// hashes and addresses.
func Hash160(b []byte) [20]byte {
	shaSum := sha256.Sum256(b)

	ripemd := ripemd160.New()
	// ripemd160.Write never returns an error.
	_, _ = ripemd.Write(shaSum[:])

	var out [20]byte
	copy(out[:], ripemd.Sum(nil))
	return out
}

// Reverse returns a copy of b with its byte order reversed. Used to
// convert txids between display order and internal (wire) order.
func Reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
