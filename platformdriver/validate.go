package platformdriver

import (
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/dashnet"
)

// ValidateIdentityId rejects anything that isn't a 43-44 character
// base58 string, matching §7's InvalidIdentityId shape.
func ValidateIdentityId(id string) error {
	if len(id) < 43 || len(id) > 44 {
		return &bridgeerrors.InvalidIdentityId{Value: id}
	}
	for _, r := range id {
		if !isBase58Char(r) {
			return &bridgeerrors.InvalidIdentityId{Value: id}
		}
	}
	return nil
}

func isBase58Char(r rune) bool {
	switch {
	case r >= '1' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z' && r != 'I' && r != 'O':
		return true
	case r >= 'a' && r <= 'z' && r != 'l':
		return true
	default:
		return false
	}
}

// ValidatePlatformAddress decodes addr via btcutil/bech32.DecodeGeneric
// (the same library the pack's btcsuite stack already carries for
// base58/chainhash/txscript/btcec), requires the bech32m (BIP-350)
// checksum variant platform addresses use, and checks the HRP matches
// net's platform HRP — rejecting a malformed address, a legacy-bech32
// one, and one for the wrong network before any key derivation or
// deposit polling happens (§8 scenario 6).
func ValidatePlatformAddress(addr string, net dashnet.Params) error {
	hrp, _, encoding, err := bech32.DecodeGeneric(addr)
	if err != nil {
		return &bridgeerrors.InvalidPlatformAddress{Value: addr, Reason: err.Error()}
	}
	if encoding != bech32.Bech32m {
		return &bridgeerrors.InvalidPlatformAddress{Value: addr, Reason: "address uses bech32 checksum, want bech32m"}
	}
	if hrp != net.PlatformHRP {
		return &bridgeerrors.InvalidPlatformAddress{Value: addr, Reason: "hrp mismatch for network " + string(net.Name)}
	}
	return nil
}
