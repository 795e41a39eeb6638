package keybackup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestFilenameByMode(t *testing.T) {
	t.Parallel()

	create := NewDocument(fixedNow(), "testnet", "create")
	create.IdentityID = "abc123identityid"
	require.Equal(t, "dash-identity-abc123identityid.json", Filename(create))

	topup := NewDocument(fixedNow(), "testnet", "topup")
	topup.TargetIdentityID = "deadbeefidentity00000000000000000000000000"
	require.Equal(t, "dash-topup-deadbeef-recovery.json", Filename(topup))

	send := NewDocument(fixedNow(), "testnet", "sendToAddress")
	send.RecipientPlatformAddress = "tdash1qqqqqqqqqqqqqqqqqqqqqqqqqqqqdeadbeef"
	require.Equal(t, "dash-send-to-address-deadbeef-recovery.json", Filename(send))

	pending := NewDocument(fixedNow(), "testnet", "create")
	pending.AssetLockKey = AssetLockKeyRecord{PublicKeyHex: "02aabbccddeeff00112233445566778899"}
	require.Equal(t, "dash-keys-02aabbcc-66778899-pending.json", Filename(pending))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := NewDocument(fixedNow(), "mainnet", "create")
	doc.Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	doc.IdentityID = "someidentityid1234567890123456789012"
	doc.IdentityKeys = []IdentityKeyRecord{
		{ID: 0, Name: "auth", KeyType: "ECDSA_SECP256K1", Purpose: "AUTHENTICATION", SecurityLevel: "MASTER"},
	}
	doc.AssetLockKey = AssetLockKeyRecord{Wif: "some-wif", PublicKeyHex: "02abc", DerivationPath: "m/44'/5'/0'/0/0"}

	path, err := Save(dir, doc)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "dash-identity-someidentityid1234567890123456789012.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, doc.Mnemonic, loaded.Mnemonic)
	require.Equal(t, doc.IdentityID, loaded.IdentityID)
	require.Len(t, loaded.IdentityKeys, 1)
	require.Equal(t, "m/44'/5'/0'/0/0", loaded.AssetLockKey.DerivationPath)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Error(t, err)
}
