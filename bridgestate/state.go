// Package bridgestate drives the bridge's session state machine: the
// sequence of steps a single deposit-to-credit (or identity-management)
// session moves through, and the pure functions that advance it.
//
// State itself is an immutable value — every transition method here
// takes a State and returns a new one rather than mutating in place,
// the same "state as data, collaborators as closed-over services" split
// the teacher's lightweight-wallet/client.Client draws between its
// Config/collaborators and whatever per-call result it returns.
package bridgestate

import (
	"github.com/thephez/dash-bridge/dashnet"
	"github.com/thephez/dash-bridge/insightclient"
	"github.com/thephez/dash-bridge/keyops"
	"github.com/thephez/dash-bridge/platformdriver"
	"github.com/thephez/dash-bridge/proofbuilder"
	"github.com/thephez/dash-bridge/txbuilder"
)

// Mode selects which identity/credit operation a session performs.
type Mode string

const (
	ModeCreate        Mode = "create"
	ModeTopUp         Mode = "topup"
	ModeFundAddress   Mode = "fundAddress"
	ModeSendToAddress Mode = "sendToAddress"
	ModeDpns          Mode = "dpns"
	ModeManage        Mode = "manage"
)

// Step is a session's current position in the state machine.
type Step string

const (
	StepInit                Step = "init"
	StepConfigureKeys       Step = "configure_keys"
	StepGeneratingKeys      Step = "generating_keys"
	StepAwaitingDeposit     Step = "awaiting_deposit"
	StepDetectingDeposit    Step = "detecting_deposit"
	StepBuildingTransaction Step = "building_transaction"
	StepSigningTransaction  Step = "signing_transaction"
	StepBroadcasting        Step = "broadcasting"
	StepWaitingIslock       Step = "waiting_islock"
	StepRegisteringIdentity Step = "registering_identity"
	StepToppingUp           Step = "topping_up"
	StepFundingAddress      Step = "funding_address"
	StepSendingToAddress    Step = "sending_to_address"
	StepManagingIdentity    Step = "managing_identity"
	StepDpnsRegistering     Step = "dpns_registering"
	StepComplete            Step = "complete"
	StepError               Step = "error"
)

// RetryStatus reports the in-flight retry state of whatever operation
// last invoked the retry engine. It is surfaced to the presenter on
// every retry callback, independent of State.
type RetryStatus struct {
	IsRetrying  bool
	Attempt     int
	MaxAttempts int
	LastError   error
}

// State is the full, immutable snapshot of one bridge session. Fields
// not relevant to the session's Mode are left zero-valued.
type State struct {
	Network dashnet.Params
	Mode    Mode
	Step    Step

	// create mode key material
	Mnemonic                string
	AssetLockKeyPair        *keyops.KeyPair
	AssetLockDerivationPath string
	IdentityKeys            []platformdriver.IdentityKey
	IdentityKeyPairs        map[uint32]*keyops.KeyPair

	// deposit detection
	DepositAddress        string
	DetectedUTXO          *insightclient.UTXO
	DetectedDepositAmount int64
	DepositTimedOut       bool

	// transaction pipeline
	BuiltTx        *txbuilder.AssetLockTransaction
	PreviousScript []byte
	SignedTx       *txbuilder.AssetLockTransaction
	SignedTxHex    string
	BroadcastTxid  string
	IslockBytes    []byte
	Proof          *proofbuilder.AssetLockProof

	// outcome
	IdentityID string

	// topup / fundAddress / sendToAddress targets
	TargetIdentityID         string
	RecipientPlatformAddress string

	// dpns mode
	DpnsLabel string

	RetryStatus RetryStatus
	LastError   error
}

// New starts a fresh session on network, parked at StepInit.
func New(network dashnet.Params) State {
	return State{Network: network, Step: StepInit}
}

// Reset discards everything but the network and starts over from
// StepInit — the only way to change Mode mid-session, and the target
// of the spec's "Try Again" recovery action from StepError.
func Reset(state State) State {
	return New(state.Network)
}

// ToError transitions state into the terminal error step, recording
// err. It is reachable from any processing step; callers invoke it
// whenever a transition method returns a non-nil error they've decided
// not to retry.
func ToError(state State, err error) State {
	next := state
	next.Step = StepError
	next.LastError = err
	return next
}
