package bridgestate

import (
	"context"
	"fmt"
	"time"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/codec"
	"github.com/thephez/dash-bridge/dashnet"
	"github.com/thephez/dash-bridge/dpns"
	"github.com/thephez/dash-bridge/hdwallet"
	"github.com/thephez/dash-bridge/insightclient"
	"github.com/thephez/dash-bridge/islockclient"
	"github.com/thephez/dash-bridge/keyops"
	"github.com/thephez/dash-bridge/platformdriver"
	"github.com/thephez/dash-bridge/proofbuilder"
	"github.com/thephez/dash-bridge/retry"
	"github.com/thephez/dash-bridge/signer"
	"github.com/thephez/dash-bridge/txbuilder"
)

// Config wires every collaborator a Driver needs, one field per
// dependency — the same shape as the teacher's client.Config, just
// pointed at the bridge's own collaborators (Insight, islock RPC, and
// the PlatformDriver) instead of a taproot-assets chain backend.
type Config struct {
	Network  dashnet.Params
	Insight  *insightclient.Client
	Islock   *islockclient.Client
	Platform platformdriver.Driver
	Retry    retry.Options
	FeeDuffs int64

	// OnRetryStatus, when set, is invoked with a fresh RetryStatus on
	// every retry engine backoff, letting a presenter narrate "retrying
	// 2/3" without threading state through the retry callback itself.
	OnRetryStatus func(RetryStatus)
}

// DefaultConfig wires sensible per-network defaults for every
// collaborator (see each package's own DefaultConfig), mirroring the
// teacher's client.DefaultConfig "Task 0N" wiring sequence.
func DefaultConfig(network dashnet.Params, platform platformdriver.Driver) Config {
	return Config{
		Network:  network,
		Insight:  insightclient.New(insightclient.DefaultConfig(network)),
		Islock:   islockclient.New(islockclient.DefaultConfig(network)),
		Platform: platform,
		Retry:    retry.DefaultOptions(),
		FeeDuffs: network.MinFeeDuffs,
	}
}

// Driver holds a Config's constructed collaborators and exposes the
// state machine's transition methods. A Driver is stateless between
// calls; every method takes and returns a State value.
type Driver struct {
	cfg Config
}

// New builds a Driver from cfg.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

func (d *Driver) retryOptions() retry.Options {
	opts := d.cfg.Retry
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = retry.DefaultShouldRetry
	}
	if d.cfg.OnRetryStatus != nil {
		userHook := opts.OnRetry
		opts.OnRetry = func(attempt, maxAttempts int, err error) {
			d.cfg.OnRetryStatus(RetryStatus{IsRetrying: true, Attempt: attempt, MaxAttempts: maxAttempts, LastError: err})
			if userHook != nil {
				userHook(attempt, maxAttempts, err)
			}
		}
	}
	return opts
}

// --- mode selection ---
//
// Each SelectXMode method is the only entry point into its mode, and
// validates any caller-supplied target before anything else happens —
// in particular before any key is derived or any deposit address is
// polled, so a malformed recipient is rejected immediately rather than
// after the bridge has already committed funds to a session.

func (d *Driver) selectMode(state State, mode Mode, firstStep Step) (State, error) {
	if state.Step != StepInit {
		return state, errWrongStep("select-mode", state.Step)
	}
	next := state
	next.Mode = mode
	next.Step = firstStep
	log.Infof("session entering mode %s at step %s", mode, firstStep)
	return next, nil
}

// SelectCreateMode starts a new-identity session.
func (d *Driver) SelectCreateMode(state State) (State, error) {
	return d.selectMode(state, ModeCreate, StepConfigureKeys)
}

// SelectManageMode starts a key-management session against an
// existing identity. No deposit is ever taken in this mode.
func (d *Driver) SelectManageMode(state State) (State, error) {
	return d.selectMode(state, ModeManage, StepConfigureKeys)
}

// SelectDpnsMode starts a DPNS name-registration session against an
// existing identity. No deposit is ever taken in this mode.
func (d *Driver) SelectDpnsMode(state State) (State, error) {
	return d.selectMode(state, ModeDpns, StepConfigureKeys)
}

// SelectTopUpMode starts a session that tops up an existing identity.
func (d *Driver) SelectTopUpMode(state State, targetIdentityID string) (State, error) {
	if err := platformdriver.ValidateIdentityId(targetIdentityID); err != nil {
		return state, err
	}
	next, err := d.selectMode(state, ModeTopUp, StepGeneratingKeys)
	if err != nil {
		return state, err
	}
	next.TargetIdentityID = targetIdentityID
	return next, nil
}

// SelectFundAddressMode starts a session that credits an operator-held
// platform address.
func (d *Driver) SelectFundAddressMode(state State, platformAddress string) (State, error) {
	if err := platformdriver.ValidatePlatformAddress(platformAddress, state.Network); err != nil {
		return state, err
	}
	next, err := d.selectMode(state, ModeFundAddress, StepGeneratingKeys)
	if err != nil {
		return state, err
	}
	next.RecipientPlatformAddress = platformAddress
	return next, nil
}

// SelectSendToAddressMode starts a session that credits a third-party
// platform address the bridge never holds a signing key for.
func (d *Driver) SelectSendToAddressMode(state State, recipientAddress string) (State, error) {
	if err := platformdriver.ValidatePlatformAddress(recipientAddress, state.Network); err != nil {
		return state, err
	}
	next, err := d.selectMode(state, ModeSendToAddress, StepGeneratingKeys)
	if err != nil {
		return state, err
	}
	next.RecipientPlatformAddress = recipientAddress
	return next, nil
}

// --- configure_keys ---

// ConfigureKeys records the mnemonic (create mode) and the identity
// key material later steps operate on.
//
// For create mode, when identityKeys is empty and mnemonic is set, the
// single default DIP-0013 identity key (identity index 0, key index 0,
// AUTHENTICATION/MASTER) is derived automatically. Manage and dpns mode
// always require the caller to supply the identity's existing key
// material explicitly — there is no mnemonic to derive it from on a
// call that targets an identity the bridge didn't create this session.
func (d *Driver) ConfigureKeys(state State, mnemonic string, identityKeys []platformdriver.IdentityKey, identityKeyPairs map[uint32]*keyops.KeyPair) (State, error) {
	if state.Step != StepConfigureKeys {
		return state, errWrongStep("configure-keys", state.Step)
	}

	next := state
	next.Mnemonic = mnemonic

	if state.Mode == ModeCreate && len(identityKeys) == 0 && mnemonic != "" {
		derivedKeys, derivedPairs, err := deriveDefaultIdentityKey(mnemonic, state.Network.BIP44CoinType)
		if err != nil {
			return state, err
		}
		identityKeys = derivedKeys
		identityKeyPairs = derivedPairs
	}

	next.IdentityKeys = normalizeIdentityKeys(identityKeys)
	next.IdentityKeyPairs = identityKeyPairs

	switch state.Mode {
	case ModeManage:
		next.Step = StepManagingIdentity
	case ModeDpns:
		next.Step = StepDpnsRegistering
	default:
		next.Step = StepGeneratingKeys
	}
	return next, nil
}

func deriveDefaultIdentityKey(mnemonic string, coinType uint32) ([]platformdriver.IdentityKey, map[uint32]*keyops.KeyPair, error) {
	seed, err := hdwallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, nil, err
	}
	master, err := hdwallet.NewMasterKey(seed)
	if err != nil {
		return nil, nil, err
	}
	child, err := master.DerivePath(hdwallet.IdentityKeyPath(coinType, 0, 0))
	if err != nil {
		return nil, nil, err
	}
	scalar, err := child.PrivKeyBytes()
	if err != nil {
		return nil, nil, err
	}
	kp := keyops.KeyPairFromScalar(scalar)

	keys := []platformdriver.IdentityKey{{
		ID:            0,
		Name:          "auth-key-0",
		Type:          keyops.KeyTypeSECP256K1,
		Purpose:       keyops.PurposeAuthentication,
		SecurityLevel: keyops.SecurityLevelMaster,
		PublicKey:     kp.Public.SerializeCompressed(),
	}}
	pairs := map[uint32]*keyops.KeyPair{0: kp}
	return keys, pairs, nil
}

// normalizeIdentityKeys applies the local state-update path's silent
// TRANSFER coercion: a TRANSFER-purpose key is forced to CRITICAL
// security level here. A key that instead reaches a PlatformDriver
// call with a mismatched level is rejected outright — see
// rejectMismatchedTransferKeys.
func normalizeIdentityKeys(keys []platformdriver.IdentityKey) []platformdriver.IdentityKey {
	out := make([]platformdriver.IdentityKey, len(keys))
	for i, k := range keys {
		if k.Purpose == keyops.PurposeTransfer && k.SecurityLevel != keyops.SecurityLevelCritical {
			k.SecurityLevel = keyops.SecurityLevelCritical
		}
		out[i] = k
	}
	return out
}

func rejectMismatchedTransferKeys(keys []platformdriver.IdentityKey) error {
	for _, k := range keys {
		if k.Purpose == keyops.PurposeTransfer && k.SecurityLevel != keyops.SecurityLevelCritical {
			return fmt.Errorf("%w: key %d is TRANSFER purpose at level %s, want CRITICAL",
				bridgeerrors.ErrKeySecurityLevelNotAllowed, k.ID, k.SecurityLevel)
		}
	}
	return nil
}

// --- generating_keys ---

// GenerateKeys derives (create mode, HD from the session mnemonic) or
// generates (topup/fundAddress/sendToAddress, a one-time random key —
// see spec §9's "one-time vs HD keys" note) the asset-lock keypair and
// computes the deposit address funds must land at.
func (d *Driver) GenerateKeys(state State) (State, error) {
	if state.Step != StepGeneratingKeys {
		return state, errWrongStep("generate-keys", state.Step)
	}

	var keyPair *keyops.KeyPair
	var path string

	if state.Mode == ModeCreate {
		seed, err := hdwallet.SeedFromMnemonic(state.Mnemonic, "")
		if err != nil {
			return state, err
		}
		master, err := hdwallet.NewMasterKey(seed)
		if err != nil {
			return state, err
		}
		assetLockPath := hdwallet.AssetLockPath(state.Network.BIP44CoinType)
		child, err := master.DerivePath(assetLockPath)
		if err != nil {
			return state, err
		}
		scalar, err := child.PrivKeyBytes()
		if err != nil {
			return state, err
		}
		keyPair = keyops.KeyPairFromScalar(scalar)
		path = hdwallet.FormatPath(assetLockPath)
	} else {
		kp, err := keyops.GenerateKeyPair()
		if err != nil {
			return state, err
		}
		keyPair = kp
		path = ""
	}

	next := state
	next.AssetLockKeyPair = keyPair
	next.AssetLockDerivationPath = path
	next.DepositAddress = keyops.PublicKeyToAddress(keyPair.Public, state.Network)
	next.Step = StepAwaitingDeposit
	log.Infof("asset-lock key generated, awaiting deposit at %s", next.DepositAddress)
	return next, nil
}

// --- awaiting_deposit / detecting_deposit ---

// AwaitDeposit polls the deposit address until minValue duffs have
// landed or timeout elapses. A timeout is not fatal: the session stays
// on detecting_deposit with DepositTimedOut set, offering the caller a
// Recheck rather than forcing a restart.
func (d *Driver) AwaitDeposit(ctx context.Context, state State, minValue int64, timeout, pollInterval time.Duration) (State, error) {
	if state.Step != StepAwaitingDeposit && state.Step != StepDetectingDeposit {
		return state, errWrongStep("await-deposit", state.Step)
	}

	next := state
	next.Step = StepDetectingDeposit

	result, err := d.cfg.Insight.WaitForUTXO(ctx, state.DepositAddress, minValue, timeout, pollInterval, nil)
	if err != nil {
		return state, err
	}

	next.DetectedDepositAmount = result.TotalAmount

	if result.TimedOut {
		next.DepositTimedOut = true
		log.Warnf("deposit to %s not yet seen, session remains on detecting_deposit", state.DepositAddress)
		return next, nil
	}

	next.DepositTimedOut = false
	next.DetectedUTXO = result.UTXO
	next.Step = StepBuildingTransaction
	log.Infof("deposit confirmed on %s: %d duffs", state.DepositAddress, result.TotalAmount)
	return next, nil
}

// Recheck re-enters waitForUtxo with the same deposit address and
// parameters. The asset-lock keypair and deposit address are never
// touched by a recheck — only a fresh deposit observation can move the
// session forward.
func (d *Driver) Recheck(ctx context.Context, state State, minValue int64, timeout, pollInterval time.Duration) (State, error) {
	return d.AwaitDeposit(ctx, state, minValue, timeout, pollInterval)
}

// --- building_transaction / signing_transaction / broadcasting ---

func (d *Driver) BuildTransaction(state State) (State, error) {
	if state.Step != StepBuildingTransaction {
		return state, errWrongStep("build-transaction", state.Step)
	}
	if state.DetectedUTXO == nil {
		return state, fmt.Errorf("build-transaction: no detected utxo on state")
	}

	scriptBytes, err := codec.DecodeHex(state.DetectedUTXO.ScriptPubKey)
	if err != nil {
		return state, bridgeerrors.NewCodecError("build-transaction-script", err)
	}

	utxo := txbuilder.UTXO{
		Txid:   state.DetectedUTXO.Txid,
		Vout:   state.DetectedUTXO.Vout,
		Value:  state.DetectedUTXO.Satoshis,
		Script: scriptBytes,
	}

	tx, err := txbuilder.Build(utxo, state.AssetLockKeyPair.Public.SerializeCompressed(), d.cfg.FeeDuffs)
	if err != nil {
		return state, err
	}

	next := state
	next.BuiltTx = tx
	next.PreviousScript = scriptBytes
	next.Step = StepSigningTransaction
	return next, nil
}

func (d *Driver) SignTransaction(state State) (State, error) {
	if state.Step != StepSigningTransaction {
		return state, errWrongStep("sign-transaction", state.Step)
	}

	signed, err := signer.SignTransaction(state.BuiltTx, [][]byte{state.PreviousScript}, state.AssetLockKeyPair.Private)
	if err != nil {
		return state, err
	}

	next := state
	next.SignedTx = signed
	next.SignedTxHex = codec.EncodeHex(txbuilder.Serialize(signed))
	next.Step = StepBroadcasting
	return next, nil
}

func (d *Driver) Broadcast(ctx context.Context, state State) (State, error) {
	if state.Step != StepBroadcasting {
		return state, errWrongStep("broadcast", state.Step)
	}

	var txid string
	err := retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		t, err := d.cfg.Insight.Broadcast(ctx, state.SignedTxHex)
		if err != nil {
			return err
		}
		txid = t
		return nil
	})
	if err != nil {
		return state, err
	}

	next := state
	next.BroadcastTxid = txid
	next.Step = StepWaitingIslock
	log.Infof("asset-lock transaction broadcast: %s", txid)
	return next, nil
}

// --- waiting_islock ---

func (d *Driver) WaitIslock(ctx context.Context, state State, timeout time.Duration) (State, error) {
	if state.Step != StepWaitingIslock {
		return state, errWrongStep("wait-islock", state.Step)
	}

	islockBytes, err := d.cfg.Islock.WaitForInstantSendLock(ctx, state.BroadcastTxid, timeout)
	if err != nil {
		return state, err
	}

	proof := proofbuilder.Build(txbuilder.Serialize(state.SignedTx), islockBytes, 0)

	next := state
	next.IslockBytes = islockBytes
	next.Proof = &proof
	next.Step = nextFinalStep(state.Mode)
	log.Infof("instantsend lock obtained for %s, proceeding to %s", state.BroadcastTxid, next.Step)
	return next, nil
}

func nextFinalStep(mode Mode) Step {
	switch mode {
	case ModeCreate:
		return StepRegisteringIdentity
	case ModeTopUp:
		return StepToppingUp
	case ModeFundAddress:
		return StepFundingAddress
	case ModeSendToAddress:
		return StepSendingToAddress
	default:
		return StepError
	}
}

// --- final, mode-dependent steps ---

// FinalStep dispatches to the mode-appropriate PlatformDriver call.
// signer carries whatever private keys the call needs to prove
// ownership; it is empty for sendToAddress, since the recipient need
// not sign.
func (d *Driver) FinalStep(ctx context.Context, state State, signer platformdriver.Signer) (State, error) {
	switch state.Step {
	case StepRegisteringIdentity:
		return d.registerIdentity(ctx, state, signer)
	case StepToppingUp:
		return d.topUp(ctx, state)
	case StepFundingAddress:
		return d.fundAddress(ctx, state, signer)
	case StepSendingToAddress:
		return d.sendToAddress(ctx, state)
	default:
		return state, errWrongStep("final-step", state.Step)
	}
}

func (d *Driver) registerIdentity(ctx context.Context, state State, signer platformdriver.Signer) (State, error) {
	if err := rejectMismatchedTransferKeys(state.IdentityKeys); err != nil {
		return state, err
	}

	var identityID string
	err := retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		id, err := d.cfg.Platform.Create(ctx, platformdriver.CreateRequest{
			Identity:            platformdriver.IdentityShell{Keys: state.IdentityKeys},
			Proof:               *state.Proof,
			AssetLockPrivateKey: state.AssetLockKeyPair,
			Signer:              signer,
		})
		if err != nil {
			return err
		}
		identityID = id
		return nil
	})
	if err != nil {
		return state, err
	}

	next := state
	next.IdentityID = identityID
	next.Step = StepComplete
	log.Infof("identity created: %s", identityID)
	return next, nil
}

func (d *Driver) topUp(ctx context.Context, state State) (State, error) {
	identity, err := d.cfg.Platform.FetchIdentity(ctx, state.TargetIdentityID)
	if err != nil {
		return state, err
	}

	err = retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		return d.cfg.Platform.TopUp(ctx, platformdriver.TopUpRequest{
			Identity:            *identity,
			Proof:               *state.Proof,
			AssetLockPrivateKey: state.AssetLockKeyPair,
		})
	})
	if err != nil {
		return state, err
	}

	next := state
	next.IdentityID = state.TargetIdentityID
	next.Step = StepComplete
	log.Infof("identity %s topped up", state.TargetIdentityID)
	return next, nil
}

func (d *Driver) fundAddress(ctx context.Context, state State, signer platformdriver.Signer) (State, error) {
	err := retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		return d.cfg.Platform.FundFromAssetLock(ctx, platformdriver.FundFromAssetLockRequest{
			Proof:               *state.Proof,
			AssetLockPrivateKey: state.AssetLockKeyPair,
			Outputs: []platformdriver.FundOutput{
				{PlatformAddress: state.RecipientPlatformAddress, Amount: state.DetectedDepositAmount},
			},
			Signer: signer,
		})
	})
	if err != nil {
		return state, err
	}

	next := state
	next.Step = StepComplete
	log.Infof("credited %d duffs to %s", state.DetectedDepositAmount, state.RecipientPlatformAddress)
	return next, nil
}

func (d *Driver) sendToAddress(ctx context.Context, state State) (State, error) {
	err := retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		return d.cfg.Platform.FundFromAssetLock(ctx, platformdriver.FundFromAssetLockRequest{
			Proof:               *state.Proof,
			AssetLockPrivateKey: state.AssetLockKeyPair,
			Outputs: []platformdriver.FundOutput{
				{PlatformAddress: state.RecipientPlatformAddress, Amount: state.DetectedDepositAmount},
			},
			Signer: platformdriver.Signer{},
		})
	})
	if err != nil {
		return state, err
	}

	next := state
	next.Step = StepComplete
	log.Infof("sent %d duffs to %s", state.DetectedDepositAmount, state.RecipientPlatformAddress)
	return next, nil
}

// --- manage mode ---

// ManageIdentity applies an identity key update. manage mode never
// touches the deposit/build/sign/broadcast/islock pipeline: it operates
// directly on an already-funded identity.
func (d *Driver) ManageIdentity(ctx context.Context, state State, identity platformdriver.IdentityShell, signer platformdriver.Signer, addKeys []platformdriver.IdentityKey, disableKeyIDs []uint32) (State, error) {
	if state.Step != StepManagingIdentity {
		return state, errWrongStep("manage-identity", state.Step)
	}
	if err := requireMasterSigner(identity, signer); err != nil {
		return state, err
	}

	err := retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		return d.cfg.Platform.Update(ctx, platformdriver.UpdateRequest{
			Identity:          identity,
			Signer:            signer,
			AddPublicKeys:     addKeys,
			DisablePublicKeys: disableKeyIDs,
		})
	})
	if err != nil {
		return state, err
	}

	next := state
	next.IdentityID = identity.ID
	next.Step = StepComplete
	log.Infof("identity %s keys updated", identity.ID)
	return next, nil
}

func requireMasterSigner(identity platformdriver.IdentityShell, signer platformdriver.Signer) error {
	for _, k := range identity.Keys {
		if k.SecurityLevel == keyops.SecurityLevelMaster {
			if _, ok := signer.Keys[k.ID]; ok {
				return nil
			}
		}
	}
	return bridgeerrors.ErrKeySecurityLevelNotAllowed
}

// --- dpns mode ---

// RegisterDpnsName normalizes label, checks its availability, and
// registers it against identity. No contention handling (submitting a
// bid into an active name auction) is attempted here: an unavailable
// contested name simply fails the session rather than entering a
// multi-round auction flow, which spec §3's mode enum does not name a
// step for.
func (d *Driver) RegisterDpnsName(ctx context.Context, state State, label string, identity platformdriver.IdentityShell, identityKey platformdriver.IdentityKey, signer platformdriver.Signer) (State, error) {
	if state.Step != StepDpnsRegistering {
		return state, errWrongStep("register-dpns-name", state.Step)
	}
	if err := keyops.RequireDpnsKey(identityKey.Purpose, identityKey.SecurityLevel); err != nil {
		return state, err
	}

	normalized := dpns.NormalizeLabel(label)

	available, err := d.cfg.Platform.DpnsIsNameAvailable(ctx, normalized)
	if err != nil {
		return state, err
	}
	if !available {
		return state, bridgeerrors.NewSdkError(fmt.Sprintf("dpns name %q is not available", normalized),
			fmt.Errorf("name already registered"))
	}

	err = retry.WithRetry(ctx, d.retryOptions(), func(ctx context.Context) error {
		return d.cfg.Platform.DpnsRegisterName(ctx, platformdriver.DpnsRegisterRequest{
			Label:       normalized,
			Identity:    identity,
			IdentityKey: identityKey,
			Signer:      signer,
		})
	})
	if err != nil {
		return state, err
	}

	next := state
	next.IdentityID = identity.ID
	next.DpnsLabel = normalized
	next.Step = StepComplete
	log.Infof("dpns name %q registered for identity %s", normalized, identity.ID)
	return next, nil
}

type wrongStepError struct {
	op   string
	have Step
}

func (e wrongStepError) Error() string {
	return fmt.Sprintf("%s: invalid from step %q", e.op, e.have)
}

func errWrongStep(op string, have Step) error { return wrongStepError{op: op, have: have} }
