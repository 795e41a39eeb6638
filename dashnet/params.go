// Package dashnet holds the immutable per-session network parameters
// the rest of the bridge core is parameterized over: address/WIF
// version bytes, fee/dust policy, external service URLs, and the
// BIP-44 coin type used for HD derivation.
//
// The byte-level constants mirror the Dash fork of btcsuite's chaincfg
// (PubKeyHashAddrID 0x4c/0x8c, PrivateKeyID 0xcc/0xef, HDCoinType 5/1)
// rather than inventing new ones, so a WIF or address produced here is
// byte-for-byte what a Dash Core node would produce.
package dashnet

import "fmt"

// Name identifies a supported Dash network.
type Name string

const (
	Mainnet Name = "mainnet"
	Testnet Name = "testnet"
)

// Params is the full set of network parameters needed by the bridge
// core. It is immutable for the lifetime of a session; switching
// networks means starting a fresh session (see bridgestate).
type Params struct {
	// Name identifies the network for display/logging purposes.
	Name Name

	// InsightBaseURL is the base URL of the Insight-compatible block
	// explorer API used for UTXO discovery and broadcast.
	InsightBaseURL string

	// IslockRPCURL is the JSON-RPC endpoint serving getislocks.
	IslockRPCURL string

	// AddressVersion is the first byte of a base58check P2PKH address.
	AddressVersion byte

	// WIFPrefix is the first byte of a base58check WIF private key.
	WIFPrefix byte

	// MinFeeDuffs is the flat fee (in duffs) the bridge subtracts from
	// the deposited UTXO value to form the locked amount.
	MinFeeDuffs int64

	// DustThreshold is the minimum duff value considered a spendable,
	// non-dust output.
	DustThreshold int64

	// PlatformHRP is the bech32m human-readable part for layer-2
	// platform addresses on this network.
	PlatformHRP string

	// FaucetBaseURL is the optional testnet faucet base URL. Empty on
	// mainnet, where no faucet exists.
	FaucetBaseURL string

	// BIP44CoinType is the hardened coin-type index used in both the
	// asset-lock and identity-key derivation paths.
	BIP44CoinType uint32
}

// MainnetParams are Dash's production network parameters.
var MainnetParams = Params{
	Name:           Mainnet,
	InsightBaseURL: "https://insight.dash.org/insight-api",
	IslockRPCURL:   "https://rpc.digitalcash.dev",
	AddressVersion: 0x4c,
	WIFPrefix:      0xcc,
	MinFeeDuffs:    1000,
	DustThreshold:  546,
	PlatformHRP:    "dash",
	FaucetBaseURL:  "",
	BIP44CoinType:  5,
}

// TestnetParams are Dash's public test network parameters.
var TestnetParams = Params{
	Name:           Testnet,
	InsightBaseURL: "https://insight.testnet.networks.dash.org/insight-api",
	IslockRPCURL:   "https://trpc.digitalcash.dev",
	AddressVersion: 0x8c,
	WIFPrefix:      0xef,
	MinFeeDuffs:    1000,
	DustThreshold:  546,
	PlatformHRP:    "tdash",
	FaucetBaseURL:  "https://faucet.testnet.networks.dash.org",
	BIP44CoinType:  1,
}

// ForName resolves the network parameters for name, defaulting to
// testnet for anything other than "mainnet" — matching the §6 CLI/URL
// surface contract (?network=mainnet selects mainnet, anything else is
// testnet).
func ForName(name string) Params {
	if name == string(Mainnet) {
		return MainnetParams
	}
	return TestnetParams
}

// String implements fmt.Stringer.
func (p Params) String() string {
	return fmt.Sprintf("dashnet(%s)", p.Name)
}
