package hdwallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// knownMnemonic is the all-"abandon"+"about" BIP-39 test vector used
// throughout the ecosystem for deterministic fixtures.
const knownMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeedFromMnemonicRejectsBadChecksum(t *testing.T) {
	t.Parallel()

	_, err := SeedFromMnemonic("abandon abandon abandon", "")
	require.Error(t, err)
}

func TestNewMnemonicLength(t *testing.T) {
	t.Parallel()

	m12, err := NewMnemonic(128)
	require.NoError(t, err)
	require.True(t, isValidMnemonicWordCount(m12, 12))

	m24, err := NewMnemonic(256)
	require.NoError(t, err)
	require.True(t, isValidMnemonicWordCount(m24, 24))

	_, err = NewMnemonic(100)
	require.Error(t, err)
}

func isValidMnemonicWordCount(m string, n int) bool {
	count := 1
	for _, r := range m {
		if r == ' ' {
			count++
		}
	}
	return count == n
}

func TestMasterKeyDeterministic(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(knownMnemonic, "")
	require.NoError(t, err)
	require.Len(t, seed, 64)

	m1, err := NewMasterKey(seed)
	require.NoError(t, err)
	m2, err := NewMasterKey(seed)
	require.NoError(t, err)

	priv1, err := m1.PrivKeyBytes()
	require.NoError(t, err)
	priv2, err := m2.PrivKeyBytes()
	require.NoError(t, err)
	require.Equal(t, priv1, priv2)
}

func TestAssetLockPathDeterministic(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(knownMnemonic, "")
	require.NoError(t, err)

	master, err := NewMasterKey(seed)
	require.NoError(t, err)

	path := AssetLockPath(5) // mainnet coin type
	require.Equal(t, []uint32{
		HardenedOffset + 44,
		HardenedOffset + 5,
		HardenedOffset + 0,
		0,
		0,
	}, path)

	k1, err := master.DerivePath(path)
	require.NoError(t, err)
	k2, err := master.DerivePath(path)
	require.NoError(t, err)

	priv1, err := k1.PrivKeyBytes()
	require.NoError(t, err)
	priv2, err := k2.PrivKeyBytes()
	require.NoError(t, err)
	require.Equal(t, priv1, priv2)

	masterPriv, err := master.PrivKeyBytes()
	require.NoError(t, err)
	require.NotEqual(t, masterPriv, priv1)
}

func TestIdentityKeyPathDeterministic(t *testing.T) {
	t.Parallel()

	seed, err := SeedFromMnemonic(knownMnemonic, "")
	require.NoError(t, err)

	master, err := NewMasterKey(seed)
	require.NoError(t, err)

	path := IdentityKeyPath(1, 0, 0) // testnet coin type, first identity, first key
	require.Equal(t, []uint32{
		HardenedOffset + 9,
		HardenedOffset + 1,
		HardenedOffset + 5,
		HardenedOffset + 0,
		HardenedOffset + 0,
		HardenedOffset + 0,
		HardenedOffset + 0,
	}, path)

	k1, err := master.DerivePath(path)
	require.NoError(t, err)

	// A different key index must derive a different key.
	path2 := IdentityKeyPath(1, 0, 1)
	k2, err := master.DerivePath(path2)
	require.NoError(t, err)

	priv1, err := k1.PrivKeyBytes()
	require.NoError(t, err)
	priv2, err := k2.PrivKeyBytes()
	require.NoError(t, err)
	require.NotEqual(t, priv1, priv2)
}

func TestDifferentMnemonicsDeriveDifferentKeys(t *testing.T) {
	t.Parallel()

	otherMnemonic, err := NewMnemonic(128)
	require.NoError(t, err)

	seedA, err := SeedFromMnemonic(knownMnemonic, "")
	require.NoError(t, err)
	seedB, err := SeedFromMnemonic(otherMnemonic, "")
	require.NoError(t, err)

	masterA, err := NewMasterKey(seedA)
	require.NoError(t, err)
	masterB, err := NewMasterKey(seedB)
	require.NoError(t, err)

	privA, err := masterA.PrivKeyBytes()
	require.NoError(t, err)
	privB, err := masterB.PrivKeyBytes()
	require.NoError(t, err)
	require.NotEqual(t, privA, privB)
}
