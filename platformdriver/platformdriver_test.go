package platformdriver

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/require"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/dashnet"
	"github.com/thephez/dash-bridge/keyops"
	"github.com/thephez/dash-bridge/proofbuilder"
)

func testProof() proofbuilder.AssetLockProof {
	return proofbuilder.Build([]byte("signed-tx-bytes"), []byte("islock-bytes"), 0)
}

func TestFakeDriverCreate(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	proof := testProof()

	id, err := drv.Create(context.Background(), CreateRequest{
		Identity: IdentityShell{Keys: []IdentityKey{{ID: 0, SecurityLevel: keyops.SecurityLevelMaster}}},
		Proof:    proof,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	shell, err := drv.FetchIdentity(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, shell.Keys, 1)

	bound := proof.CreateIdentityId()
	require.Equal(t, idHex(bound[:]), id)
}

func TestFakeDriverCreateHonorsNextIdentityID(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	drv.NextIdentityID = "my-fixed-identity-id"

	id, err := drv.Create(context.Background(), CreateRequest{Proof: testProof()})
	require.NoError(t, err)
	require.Equal(t, "my-fixed-identity-id", id)
}

func TestFakeDriverTopUpRequiresExistingIdentity(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	err := drv.TopUp(context.Background(), TopUpRequest{Identity: IdentityShell{ID: "nope"}})
	require.Error(t, err)

	var sdkErr *bridgeerrors.SdkError
	require.ErrorAs(t, err, &sdkErr)
}

func TestFakeDriverUpdateRequiresMasterSigner(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	masterPair, err := keyops.GenerateKeyPair()
	require.NoError(t, err)
	mediumPair, err := keyops.GenerateKeyPair()
	require.NoError(t, err)

	id, err := drv.Create(context.Background(), CreateRequest{
		Identity: IdentityShell{Keys: []IdentityKey{
			{ID: 0, SecurityLevel: keyops.SecurityLevelMaster},
			{ID: 1, SecurityLevel: keyops.SecurityLevelMedium},
		}},
		Proof: testProof(),
	})
	require.NoError(t, err)
	shell, err := drv.FetchIdentity(context.Background(), id)
	require.NoError(t, err)

	// Signer holding only the MEDIUM key must be rejected.
	err = drv.Update(context.Background(), UpdateRequest{
		Identity: *shell,
		Signer:   Signer{Keys: map[uint32]*keyops.KeyPair{1: mediumPair}},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, bridgeerrors.ErrKeySecurityLevelNotAllowed)

	// Signer holding the MASTER key succeeds and bumps the revision.
	err = drv.Update(context.Background(), UpdateRequest{
		Identity: *shell,
		Signer:   Signer{Keys: map[uint32]*keyops.KeyPair{0: masterPair}},
		AddPublicKeys: []IdentityKey{
			{ID: 2, SecurityLevel: keyops.SecurityLevelHigh},
		},
	})
	require.NoError(t, err)

	updated, err := drv.FetchIdentity(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, uint64(1), updated.Revision)
	require.Len(t, updated.Keys, 3)
}

func TestFakeDriverFundFromAssetLockRequiresOutputs(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	err := drv.FundFromAssetLock(context.Background(), FundFromAssetLockRequest{Proof: testProof()})
	require.Error(t, err)

	err = drv.FundFromAssetLock(context.Background(), FundFromAssetLockRequest{
		Proof:   testProof(),
		Outputs: []FundOutput{{PlatformAddress: "tdash1qsomething", Amount: 1000}},
	})
	require.NoError(t, err)
}

func TestFakeDriverDpnsRegisterRejectsTakenName(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	available, err := drv.DpnsIsNameAvailable(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, available)

	called := false
	err = drv.DpnsRegisterName(context.Background(), DpnsRegisterRequest{
		Label:            "alice",
		PreorderCallback: func() { called = true },
	})
	require.NoError(t, err)
	require.True(t, called)

	available, err = drv.DpnsIsNameAvailable(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, available)

	err = drv.DpnsRegisterName(context.Background(), DpnsRegisterRequest{Label: "alice"})
	require.Error(t, err)
}

func TestFakeDriverFailNextCallFiresOnce(t *testing.T) {
	t.Parallel()

	drv := NewFakeDriver()
	injected := errors.New("simulated transport failure")
	drv.FailNextCall = injected

	_, err := drv.Create(context.Background(), CreateRequest{Proof: testProof()})
	require.ErrorIs(t, err, injected)

	// Cleared after firing once.
	_, err = drv.Create(context.Background(), CreateRequest{Proof: testProof()})
	require.NoError(t, err)
}

func TestValidateIdentityIdRejectsBadShapes(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateIdentityId("1111111111111111111111111111111111111111111"))
	require.Error(t, ValidateIdentityId("too-short"))
	require.Error(t, ValidateIdentityId("contains-0-and-O-and-I-and-l-chars-012345678901234"))
}

func TestValidatePlatformAddressHrpMismatch(t *testing.T) {
	t.Parallel()

	addr, err := bech32.EncodeM("dash", []byte{0, 1, 2, 3, 4})
	require.NoError(t, err)

	require.NoError(t, ValidatePlatformAddress(addr, dashnet.MainnetParams))

	err = ValidatePlatformAddress(addr, dashnet.TestnetParams)
	require.Error(t, err)

	var invalidAddr *bridgeerrors.InvalidPlatformAddress
	require.ErrorAs(t, err, &invalidAddr)
}

func TestValidatePlatformAddressMalformed(t *testing.T) {
	t.Parallel()

	err := ValidatePlatformAddress("not-a-bech32m-address-at-all", dashnet.TestnetParams)
	require.Error(t, err)

	var invalidAddr *bridgeerrors.InvalidPlatformAddress
	require.ErrorAs(t, err, &invalidAddr)
}

func TestValidatePlatformAddressRejectsLegacyBech32(t *testing.T) {
	t.Parallel()

	addr, err := bech32.Encode("dash", []byte{0, 1, 2, 3, 4})
	require.NoError(t, err)

	err = ValidatePlatformAddress(addr, dashnet.MainnetParams)
	require.Error(t, err)

	var invalidAddr *bridgeerrors.InvalidPlatformAddress
	require.ErrorAs(t, err, &invalidAddr)
}
