// Command dash-bridge drives one bridge session end to end from a
// terminal: select a mode, generate keys, wait for a deposit, build
// and broadcast the asset-lock transaction, wait for its InstantSend
// lock, and hand the resulting proof to the platform driver. Progress
// is narrated to stdout as a stand-in for the spec's browser/QR/
// clipboard presenter, which is out of scope for this module.
//
// The Platform SDK itself is an external, closed-over native
// collaborator (spec §4.12/§9); this binary has nothing to link it
// against, so every command here runs against platformdriver's
// in-memory FakeDriver instead of a live Platform connection. A real
// embedding would plug a generated Platform client behind
// platformdriver.Driver and pass it to bridgestate.DefaultConfig in
// place of the fake.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btclog"
	"github.com/urfave/cli"

	"github.com/thephez/dash-bridge/bridgestate"
	"github.com/thephez/dash-bridge/dashnet"
	"github.com/thephez/dash-bridge/dpns"
	"github.com/thephez/dash-bridge/faucetclient"
	"github.com/thephez/dash-bridge/hashutil"
	"github.com/thephez/dash-bridge/hdwallet"
	"github.com/thephez/dash-bridge/insightclient"
	"github.com/thephez/dash-bridge/islockclient"
	"github.com/thephez/dash-bridge/keybackup"
	"github.com/thephez/dash-bridge/keyops"
	"github.com/thephez/dash-bridge/platformdriver"
	"github.com/thephez/dash-bridge/retry"
)

func main() {
	app := cli.NewApp()
	app.Name = "dash-bridge"
	app.Usage = "drive an L1 Dash deposit into an L2 Platform identity credit"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "network", Value: "testnet", Usage: "mainnet or testnet"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace|debug|info|warn|error|off"},
		cli.StringFlag{Name: "backup-dir", Value: ".", Usage: "directory key-backup documents are written to"},
		cli.DurationFlag{Name: "deposit-timeout", Value: 10 * time.Minute, Usage: "how long to wait for the deposit to appear"},
		cli.DurationFlag{Name: "poll-interval", Value: 5 * time.Second, Usage: "deposit poll interval"},
		cli.DurationFlag{Name: "islock-timeout", Value: 2 * time.Minute, Usage: "how long to wait for the InstantSend lock"},
	}
	app.Before = func(c *cli.Context) error {
		wireLogging(c.String("log-level"))
		return nil
	}
	app.Commands = []cli.Command{
		createCommand(),
		topUpCommand(),
		fundAddressCommand(),
		sendToAddressCommand(),
		manageCommand(),
		dpnsCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dash-bridge:", err)
		os.Exit(1)
	}
}

// wireLogging builds a single stdout btclog.Backend at the requested
// level and hands every package its own subsystem logger, the same
// "one backend, many tagged loggers" wiring lnd/btcsuite binaries use.
func wireLogging(levelName string) {
	level, ok := btclog.LevelFromString(levelName)
	if !ok {
		level = btclog.LevelInfo
	}

	backend := btclog.NewBackend(os.Stdout)
	use := func(tag string, setter func(btclog.Logger)) {
		l := backend.Logger(tag)
		l.SetLevel(level)
		setter(l)
	}

	use("INST", insightclient.UseLogger)
	use("ISLK", islockclient.UseLogger)
	use("RTRY", retry.UseLogger)
	use("BRDG", bridgestate.UseLogger)
	use("FCET", faucetclient.UseLogger)
}

func network(c *cli.Context) dashnet.Params {
	return dashnet.ForName(c.GlobalString("network"))
}

// newDriver wires a bridgestate.Driver against the in-memory
// FakeDriver and reports every retry attempt to stdout.
func newDriver(net dashnet.Params, platform platformdriver.Driver) *bridgestate.Driver {
	cfg := bridgestate.DefaultConfig(net, platform)
	cfg.OnRetryStatus = func(status bridgestate.RetryStatus) {
		fmt.Printf("retrying (%d/%d) after: %v\n", status.Attempt, status.MaxAttempts, status.LastError)
	}
	return bridgestate.New(cfg)
}

// --- create ---

func createCommand() cli.Command {
	return cli.Command{
		Name:  "create",
		Usage: "derive a fresh identity from a new mnemonic and fund it from a deposit",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "entropy-bits", Value: 128, Usage: "12 words (128) or 24 words (256)"},
		},
		Action: func(c *cli.Context) error {
			net := network(c)
			d := newDriver(net, platformdriver.NewFakeDriver())

			mnemonic, err := hdwallet.NewMnemonic(c.Int("entropy-bits"))
			if err != nil {
				return err
			}

			state := bridgestate.New(net)
			state, err = d.SelectCreateMode(state)
			if err != nil {
				return err
			}
			state, err = d.ConfigureKeys(state, mnemonic, nil, nil)
			if err != nil {
				return err
			}
			state, err = d.GenerateKeys(state)
			if err != nil {
				return err
			}

			doc := keybackup.NewDocument(time.Now(), string(net.Name), string(bridgestate.ModeCreate))
			doc.Mnemonic = mnemonic
			doc.DepositAddress = state.DepositAddress
			doc.AssetLockKey = keybackup.AssetLockKeyRecord{
				Wif:            keyops.PrivateKeyToWif(state.AssetLockKeyPair.Private, net, true),
				PublicKeyHex:   fmt.Sprintf("%x", state.AssetLockKeyPair.Public.SerializeCompressed()),
				DerivationPath: state.AssetLockDerivationPath,
			}
			path, err := keybackup.Save(c.GlobalString("backup-dir"), doc)
			if err != nil {
				return err
			}
			fmt.Printf("deposit at least dust+fee to %s (backup: %s)\n", state.DepositAddress, path)

			state, err = runDepositPipeline(c, d, state)
			if err != nil {
				return err
			}

			signer := platformdriver.Signer{Keys: state.IdentityKeyPairs}
			state, err = d.FinalStep(context.Background(), state, signer)
			if err != nil {
				return err
			}

			doc.IdentityID = state.IdentityID
			if _, err := keybackup.Save(c.GlobalString("backup-dir"), doc); err != nil {
				return err
			}
			fmt.Printf("identity created: %s\n", state.IdentityID)
			return nil
		},
	}
}

// --- topup / fundAddress / sendToAddress share the deposit pipeline ---

func topUpCommand() cli.Command {
	return cli.Command{
		Name:  "topup",
		Usage: "credit an existing identity from a new deposit",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "identity", Usage: "target identity id (43-44 base58 chars)"},
		},
		Action: func(c *cli.Context) error {
			net := network(c)
			fake := platformdriver.NewFakeDriver()
			d := newDriver(net, fake)

			targetID := c.String("identity")
			if targetID == "" {
				// Demo convenience: stand up a throwaway identity on the
				// fake driver so the command has something to top up.
				id, err := seedDemoIdentity(fake)
				if err != nil {
					return err
				}
				targetID = id
				fmt.Printf("no --identity given, topping up demo identity %s\n", targetID)
			}

			state := bridgestate.New(net)
			state, err := d.SelectTopUpMode(state, targetID)
			if err != nil {
				return err
			}
			state, err = d.GenerateKeys(state)
			if err != nil {
				return err
			}
			fmt.Printf("deposit to %s\n", state.DepositAddress)

			state, err = runDepositPipeline(c, d, state)
			if err != nil {
				return err
			}
			state, err = d.FinalStep(context.Background(), state, platformdriver.Signer{})
			if err != nil {
				return err
			}
			fmt.Printf("identity %s topped up\n", state.IdentityID)
			return nil
		},
	}
}

func fundAddressCommand() cli.Command {
	return cli.Command{
		Name:  "fund-address",
		Usage: "credit an operator-held platform address from a new deposit",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "to", Usage: "bech32m platform address"},
		},
		Action: func(c *cli.Context) error {
			return runFundingFlow(c, bridgestate.ModeFundAddress)
		},
	}
}

func sendToAddressCommand() cli.Command {
	return cli.Command{
		Name:  "send-to-address",
		Usage: "credit a third-party platform address from a new deposit",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "to", Usage: "bech32m platform address"},
		},
		Action: func(c *cli.Context) error {
			return runFundingFlow(c, bridgestate.ModeSendToAddress)
		},
	}
}

func runFundingFlow(c *cli.Context, mode bridgestate.Mode) error {
	net := network(c)
	d := newDriver(net, platformdriver.NewFakeDriver())

	to := c.String("to")
	if to == "" {
		return fmt.Errorf("--to is required")
	}

	state := bridgestate.New(net)
	var err error
	if mode == bridgestate.ModeFundAddress {
		state, err = d.SelectFundAddressMode(state, to)
	} else {
		state, err = d.SelectSendToAddressMode(state, to)
	}
	if err != nil {
		return err
	}
	state, err = d.GenerateKeys(state)
	if err != nil {
		return err
	}
	fmt.Printf("deposit to %s\n", state.DepositAddress)

	state, err = runDepositPipeline(c, d, state)
	if err != nil {
		return err
	}
	state, err = d.FinalStep(context.Background(), state, platformdriver.Signer{})
	if err != nil {
		return err
	}
	fmt.Printf("credited %d duffs to %s\n", state.DetectedDepositAmount, to)
	return nil
}

// runDepositPipeline carries state from awaiting_deposit through to
// the mode-dependent final step, printing each transition.
func runDepositPipeline(c *cli.Context, d *bridgestate.Driver, state bridgestate.State) (bridgestate.State, error) {
	ctx := context.Background()
	minValue := state.Network.DustThreshold + state.Network.MinFeeDuffs

	state, err := d.AwaitDeposit(ctx, state, minValue, c.GlobalDuration("deposit-timeout"), c.GlobalDuration("poll-interval"))
	if err != nil {
		return state, err
	}
	if state.DepositTimedOut {
		return state, fmt.Errorf("no deposit seen within %s, rerun to recheck", c.GlobalDuration("deposit-timeout"))
	}
	fmt.Printf("deposit detected: %d duffs\n", state.DetectedDepositAmount)

	state, err = d.BuildTransaction(state)
	if err != nil {
		return state, err
	}
	state, err = d.SignTransaction(state)
	if err != nil {
		return state, err
	}
	state, err = d.Broadcast(ctx, state)
	if err != nil {
		return state, err
	}
	fmt.Printf("broadcast: %s\n", state.BroadcastTxid)

	state, err = d.WaitIslock(ctx, state, c.GlobalDuration("islock-timeout"))
	if err != nil {
		return state, err
	}
	fmt.Println("instantsend lock obtained")
	return state, nil
}

// --- manage ---

func manageCommand() cli.Command {
	return cli.Command{
		Name:  "manage",
		Usage: "add/disable keys on a demo identity (requires a MASTER-level signer)",
		Action: func(c *cli.Context) error {
			net := network(c)
			fake := platformdriver.NewFakeDriver()
			d := newDriver(net, fake)

			identity, masterSigner, err := seedDemoIdentityWithSigner(fake)
			if err != nil {
				return err
			}

			state := bridgestate.New(net)
			state, err = d.SelectManageMode(state)
			if err != nil {
				return err
			}
			state, err = d.ConfigureKeys(state, "", identity.Keys, masterSigner.Keys)
			if err != nil {
				return err
			}

			newKeyPair, err := keyops.GenerateKeyPair()
			if err != nil {
				return err
			}
			addKeys := []platformdriver.IdentityKey{{
				ID:            1,
				Name:          "medium-key-1",
				Type:          keyops.KeyTypeSECP256K1,
				Purpose:       keyops.PurposeAuthentication,
				SecurityLevel: keyops.SecurityLevelMedium,
				PublicKey:     newKeyPair.Public.SerializeCompressed(),
			}}

			state, err = d.ManageIdentity(context.Background(), state, identity, masterSigner, addKeys, nil)
			if err != nil {
				return err
			}
			fmt.Printf("identity %s updated\n", state.IdentityID)
			return nil
		},
	}
}

// --- dpns ---

func dpnsCommand() cli.Command {
	return cli.Command{
		Name:  "dpns",
		Usage: "register a DPNS name against a demo identity",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "label", Usage: "the name to register, e.g. alice"},
		},
		Action: func(c *cli.Context) error {
			label := c.String("label")
			if label == "" {
				return fmt.Errorf("--label is required")
			}

			net := network(c)
			fake := platformdriver.NewFakeDriver()
			d := newDriver(net, fake)

			identity, signer, err := seedDemoIdentityWithSigner(fake)
			if err != nil {
				return err
			}
			dpnsKey := identity.Keys[0]
			dpnsKey.Purpose = keyops.PurposeAuthentication
			dpnsKey.SecurityLevel = keyops.SecurityLevelCritical

			state := bridgestate.New(net)
			state, err = d.SelectDpnsMode(state)
			if err != nil {
				return err
			}
			state, err = d.ConfigureKeys(state, "", identity.Keys, signer.Keys)
			if err != nil {
				return err
			}

			state, err = d.RegisterDpnsName(context.Background(), state, label, identity, dpnsKey, signer)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s.dash for identity %s\n", dpns.NormalizeLabel(label), state.IdentityID)
			return nil
		},
	}
}

// --- demo identity helpers ---
//
// These exist only so topup/manage/dpns have something to operate on
// without a live Platform connection; a real embedding replaces the
// FakeDriver with a client that already knows about the identity.

func seedDemoIdentityWithSigner(fake *platformdriver.FakeDriver) (platformdriver.IdentityShell, platformdriver.Signer, error) {
	kp, err := keyops.GenerateKeyPair()
	if err != nil {
		return platformdriver.IdentityShell{}, platformdriver.Signer{}, err
	}

	keys := []platformdriver.IdentityKey{{
		ID:            0,
		Name:          "master-key-0",
		Type:          keyops.KeyTypeSECP256K1,
		Purpose:       keyops.PurposeAuthentication,
		SecurityLevel: keyops.SecurityLevelMaster,
		PublicKey:     kp.Public.SerializeCompressed(),
	}}
	signer := platformdriver.Signer{Keys: map[uint32]*keyops.KeyPair{0: kp}}

	assetLockKey, err := keyops.GenerateKeyPair()
	if err != nil {
		return platformdriver.IdentityShell{}, platformdriver.Signer{}, err
	}

	// FakeDriver.Create otherwise derives an id via idHex, a 64-char
	// hex string that fails ValidateIdentityId's 43-44 char base58
	// shape. Override it with a base58 id so the demo identity round-
	// trips through SelectTopUpMode the way a real Platform identity
	// id would.
	fake.NextIdentityID = demoIdentityID(assetLockKey.Public.SerializeCompressed())

	id, err := fake.Create(context.Background(), platformdriver.CreateRequest{
		Identity:            platformdriver.IdentityShell{Keys: keys},
		AssetLockPrivateKey: assetLockKey,
		Signer:              signer,
	})
	if err != nil {
		return platformdriver.IdentityShell{}, platformdriver.Signer{}, err
	}

	identity, err := fake.FetchIdentity(context.Background(), id)
	if err != nil {
		return platformdriver.IdentityShell{}, platformdriver.Signer{}, err
	}
	return *identity, signer, nil
}

// demoIdentityID derives a base58 identity id from pubKey, padded or
// trimmed to exactly 44 characters so it always satisfies
// platformdriver.ValidateIdentityId regardless of the rare short
// base58 encoding of a 32-byte hash.
func demoIdentityID(pubKey []byte) string {
	hash := hashutil.Sha256(pubKey)
	id := base58.Encode(hash[:])
	for len(id) < 44 {
		id = "1" + id
	}
	return id[:44]
}

func seedDemoIdentity(fake *platformdriver.FakeDriver) (string, error) {
	identity, _, err := seedDemoIdentityWithSigner(fake)
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}
