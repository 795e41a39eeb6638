// Package keybackup implements the one-shot recovery-backup JSON
// export/import the bridge relies on in place of any persistent
// on-device wallet storage (spec §6). It is file-naming and
// serialization only; the caller decides when to write it (auto-backup
// after key generation, and again at completion).
//
// Grounded on the teacher's keyring.FileKeyStateStore (storage.go),
// which persists key-family index state as indented JSON to a single
// file with 0600 permissions; this package repurposes that same
// load/save idiom for a point-in-time recovery snapshot instead of a
// running index counter.
package keybackup

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/thephez/dash-bridge/bridgeerrors"
)

// IdentityKeyRecord is one entry of Document.IdentityKeys.
type IdentityKeyRecord struct {
	ID             uint32 `json:"id"`
	Name           string `json:"name"`
	KeyType        string `json:"keyType"`
	Purpose        string `json:"purpose"`
	SecurityLevel  string `json:"securityLevel"`
	PrivateKeyWif  string `json:"privateKeyWif"`
	PrivateKeyHex  string `json:"privateKeyHex"`
	PublicKeyHex   string `json:"publicKeyHex"`
	DerivationPath string `json:"derivationPath"`
}

// AssetLockKeyRecord is the Document.AssetLockKey field.
type AssetLockKeyRecord struct {
	Wif            string `json:"wif"`
	PublicKeyHex   string `json:"publicKeyHex"`
	DerivationPath string `json:"derivationPath,omitempty"`
	Note           string `json:"note,omitempty"`
}

// Document is the key-backup JSON shape from spec §6. Every field but
// the first five is mode-dependent and left zero-valued when unused.
type Document struct {
	Network        string `json:"network"`
	Created        string `json:"created"`
	Mode           string `json:"mode"`
	DepositAddress string `json:"depositAddress,omitempty"`
	Txid           string `json:"txid,omitempty"`

	// create mode
	Mnemonic     string              `json:"mnemonic,omitempty"`
	IdentityID   string              `json:"identityId,omitempty"`
	IdentityKeys []IdentityKeyRecord `json:"identityKeys,omitempty"`
	AssetLockKey AssetLockKeyRecord  `json:"assetLockKey,omitempty"`

	// topup / fundAddress / sendToAddress modes
	TargetIdentityID         string `json:"targetIdentityId,omitempty"`
	RecipientPlatformAddress string `json:"recipientPlatformAddress,omitempty"`
}

// NewDocument stamps the current time into a fresh Document. now is
// passed in rather than read from the clock internally, matching the
// rest of the core's preference for caller-supplied inputs over
// hidden global state.
func NewDocument(now time.Time, network, mode string) Document {
	return Document{
		Network: network,
		Created: now.UTC().Format(time.RFC3339),
		Mode:    mode,
	}
}

// Filename derives the backup's filename per spec §6's conventions:
// identity-keyed once an identity id is known, otherwise a
// mode-specific recovery/pending name.
func Filename(doc Document) string {
	switch {
	case doc.IdentityID != "":
		return fmt.Sprintf("dash-identity-%s.json", doc.IdentityID)
	case doc.Mode == "topup" && doc.TargetIdentityID != "":
		return fmt.Sprintf("dash-topup-%s-recovery.json", firstN(doc.TargetIdentityID, 8))
	case doc.Mode == "sendToAddress" && doc.RecipientPlatformAddress != "":
		return fmt.Sprintf("dash-send-to-address-%s-recovery.json", lastN(doc.RecipientPlatformAddress, 8))
	case doc.AssetLockKey.PublicKeyHex != "":
		pk := doc.AssetLockKey.PublicKeyHex
		return fmt.Sprintf("dash-keys-%s-%s-pending.json", firstN(pk, 8), lastN(pk, 8))
	default:
		return "dash-keys-pending.json"
	}
}

// Save writes doc to dir/Filename(doc) as indented JSON with 0600
// permissions, matching FileKeyStateStore.save's persistence idiom.
func Save(dir string, doc Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", bridgeerrors.NewCodecError("keybackup-marshal", err)
	}

	path := dir + string(os.PathSeparator) + Filename(doc)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", bridgeerrors.NewCodecError("keybackup-write", err)
	}
	return path, nil
}

// Load reads and parses a key-backup JSON document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bridgeerrors.NewCodecError("keybackup-read", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, bridgeerrors.NewCodecError("keybackup-unmarshal", err)
	}
	return &doc, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
