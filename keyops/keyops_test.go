package keyops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/dashnet"
)

func TestGenerateKeyPairIsRandom(t *testing.T) {
	t.Parallel()

	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	require.NotEqual(t, kp1.Private.Serialize(), kp2.Private.Serialize())
	require.Len(t, kp1.Public.SerializeCompressed(), 33)
}

func TestWifRoundTrip(t *testing.T) {
	t.Parallel()

	for _, net := range []dashnet.Params{dashnet.MainnetParams, dashnet.TestnetParams} {
		kp, err := GenerateKeyPair()
		require.NoError(t, err)

		wif := PrivateKeyToWif(kp.Private, net, true)

		decoded, err := WifToPrivateKey(wif)
		require.NoError(t, err)
		require.True(t, decoded.Compressed)
		require.Equal(t, net.WIFPrefix, decoded.Prefix)
		require.Equal(t, kp.Private.Serialize(), decoded.PrivateKey.Serialize())

		require.NoError(t, ValidateNetworkPrefix(decoded, net))
	}
}

func TestWifNetworkMismatch(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	wif := PrivateKeyToWif(kp.Private, dashnet.MainnetParams, true)
	decoded, err := WifToPrivateKey(wif)
	require.NoError(t, err)

	err = ValidateNetworkPrefix(decoded, dashnet.TestnetParams)
	require.ErrorIs(t, err, bridgeerrors.ErrWifNetworkMismatch)
}

func TestWifToPrivateKeyRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := WifToPrivateKey("not-a-valid-wif-string")
	require.Error(t, err)
}

func TestPublicKeyToAddressPrefixByte(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	addr := PublicKeyToAddress(kp.Public, dashnet.MainnetParams)
	require.NotEmpty(t, addr)
}

func TestFindMatchingKey(t *testing.T) {
	t.Parallel()

	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	net := dashnet.TestnetParams
	wif := PrivateKeyToWif(kp.Private, net, true)

	matchingKeys := []OnChainPublicKey{
		{KeyID: 0, Type: KeyTypeSECP256K1, Purpose: PurposeAuthentication, SecurityLevel: SecurityLevelMaster, Payload: kp.Public.SerializeCompressed()},
	}

	match, err := FindMatchingKey(wif, matchingKeys, net)
	require.NoError(t, err)
	require.Equal(t, uint32(0), match.KeyID)
	require.Equal(t, PurposeAuthentication, match.Purpose)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	unrelatedWif := PrivateKeyToWif(other.Private, net, true)

	_, err = FindMatchingKey(unrelatedWif, matchingKeys, net)
	require.Error(t, err)
}

func TestRequireSecurityLevel(t *testing.T) {
	t.Parallel()

	require.NoError(t, RequireSecurityLevel(SecurityLevelMaster, SecurityLevelMaster))
	require.Error(t, RequireSecurityLevel(SecurityLevelCritical, SecurityLevelMaster))
}

func TestRequireDpnsKey(t *testing.T) {
	t.Parallel()

	require.NoError(t, RequireDpnsKey(PurposeAuthentication, SecurityLevelCritical))
	require.NoError(t, RequireDpnsKey(PurposeAuthentication, SecurityLevelHigh))
	require.Error(t, RequireDpnsKey(PurposeAuthentication, SecurityLevelMedium))
	require.Error(t, RequireDpnsKey(PurposeTransfer, SecurityLevelCritical))
}
