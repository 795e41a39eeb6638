package platformdriver

import (
	"context"
	"sync"

	"github.com/thephez/dash-bridge/bridgeerrors"
	"github.com/thephez/dash-bridge/keyops"
)

// FakeDriver is an in-memory Driver used by the bridge core's own
// tests, and usable by callers that want to exercise the state
// machine without a live platform SDK connection.
type FakeDriver struct {
	mu sync.Mutex

	identities map[string]*IdentityShell
	dpnsNames  map[string]bool

	// NextIdentityID, when set, overrides Create's derived identity id
	// (Create otherwise uses req.Proof.CreateIdentityId()).
	NextIdentityID string

	// FailNextCall, when set, makes the next call to any method return
	// this error once, then clears itself. Useful for exercising
	// retry.WithRetry against this fake.
	FailNextCall error
}

// NewFakeDriver constructs an empty FakeDriver.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		identities: make(map[string]*IdentityShell),
		dpnsNames:  make(map[string]bool),
	}
}

func (f *FakeDriver) takeFailure() error {
	if f.FailNextCall == nil {
		return nil
	}
	err := f.FailNextCall
	f.FailNextCall = nil
	return err
}

// Create registers a new identity keyed by the proof's bound identity
// id (or NextIdentityID if set), storing the requested keys.
func (f *FakeDriver) Create(ctx context.Context, req CreateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return "", err
	}

	id := f.NextIdentityID
	if id == "" {
		bound := req.Proof.CreateIdentityId()
		id = idHex(bound[:])
	}

	shell := &IdentityShell{ID: id, Revision: 0, Keys: req.Identity.Keys}
	f.identities[id] = shell

	return id, nil
}

// TopUp is a no-op beyond requiring the identity to already exist.
func (f *FakeDriver) TopUp(ctx context.Context, req TopUpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return err
	}

	if _, ok := f.identities[req.Identity.ID]; !ok {
		return bridgeerrors.NewSdkError("identity not found", errIdentityNotFound(req.Identity.ID))
	}
	return nil
}

// Update mutates the identity's stored key set, requiring Signer to
// hold a MASTER-level key.
func (f *FakeDriver) Update(ctx context.Context, req UpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return err
	}

	shell, ok := f.identities[req.Identity.ID]
	if !ok {
		return bridgeerrors.NewSdkError("identity not found", errIdentityNotFound(req.Identity.ID))
	}

	hasMasterSigner := false
	for _, k := range shell.Keys {
		if k.SecurityLevel == keyops.SecurityLevelMaster {
			if _, ok := req.Signer.Keys[k.ID]; ok {
				hasMasterSigner = true
				break
			}
		}
	}
	if !hasMasterSigner {
		return bridgeerrors.NewSdkError("update requires a MASTER-level signer", bridgeerrors.ErrKeySecurityLevelNotAllowed)
	}

	for _, disableID := range req.DisablePublicKeys {
		for i := range shell.Keys {
			if shell.Keys[i].ID == disableID {
				shell.Keys[i].DisabledAt = 1
			}
		}
	}
	shell.Keys = append(shell.Keys, req.AddPublicKeys...)
	shell.Revision++

	return nil
}

// FundFromAssetLock is a no-op that only requires at least one entry
// in Outputs; it does not check the platform addresses themselves —
// this fake has no ledger of platform-address balances to update.
func (f *FakeDriver) FundFromAssetLock(ctx context.Context, req FundFromAssetLockRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return err
	}
	if len(req.Outputs) == 0 {
		return bridgeerrors.NewSdkError("no outputs", errNoOutputs())
	}
	return nil
}

// FetchIdentity returns the stored identity shell for id.
func (f *FakeDriver) FetchIdentity(ctx context.Context, id string) (*IdentityShell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return nil, err
	}

	shell, ok := f.identities[id]
	if !ok {
		return nil, bridgeerrors.NewSdkError("identity not found", errIdentityNotFound(id))
	}
	return shell, nil
}

// DpnsIsNameAvailable reports whether label has already been
// registered against this fake.
func (f *FakeDriver) DpnsIsNameAvailable(ctx context.Context, label string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return false, err
	}
	return !f.dpnsNames[label], nil
}

// DpnsRegisterName records label as taken.
func (f *FakeDriver) DpnsRegisterName(ctx context.Context, req DpnsRegisterRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.takeFailure(); err != nil {
		return err
	}
	if f.dpnsNames[req.Label] {
		return bridgeerrors.NewSdkError("name already registered", errNameTaken(req.Label))
	}
	if req.PreorderCallback != nil {
		req.PreorderCallback()
	}
	f.dpnsNames[req.Label] = true
	return nil
}

var _ Driver = (*FakeDriver)(nil)

func idHex(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hextable[v>>4]
		out[i*2+1] = hextable[v&0x0f]
	}
	return string(out)
}

type identityNotFoundError struct{ id string }

func (e identityNotFoundError) Error() string { return "identity not found: " + e.id }
func errIdentityNotFound(id string) error     { return identityNotFoundError{id: id} }

type noOutputsError struct{}

func (e noOutputsError) Error() string { return "no fund outputs supplied" }
func errNoOutputs() error              { return noOutputsError{} }

type nameTakenError struct{ label string }

func (e nameTakenError) Error() string { return "dpns name already registered: " + e.label }
func errNameTaken(label string) error  { return nameTakenError{label: label} }
