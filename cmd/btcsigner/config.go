package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcsigner/keychain"
	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/remote/bridge"
	"github.com/btcsuite/btcsigner/wallet"
	"golang.org/x/term"
)

const (
	defaultLogLevel    = "info"
	defaultLogFilename = "btcsigner.log"
	defaultListenAddr  = "127.0.0.1:8765"

	// promptValue asks for a secret on the terminal instead of taking it
	// from the command line.
	promptValue = "-"
)

var (
	defaultHomeDir = btcutil.AppDataDir("btcsigner", false)
	defaultLogDir  = filepath.Join(defaultHomeDir, "logs")
)

// config holds the options shared by every command.
type config struct {
	Network     string `long:"network" description:"Network to sign for" choice:"mainnet" choice:"testnet" choice:"regtest" default:"mainnet"`
	AddressType string `long:"addrtype" description:"Address type of the local key" choice:"p2pkh" choice:"p2wpkh" choice:"p2sh-p2wpkh" choice:"p2tr" default:"p2wpkh"`

	PrivKey    string `long:"privkey" description:"Private key as 64 hex characters or WIF ('-' to prompt)"`
	Mnemonic   string `long:"mnemonic" description:"BIP-39 mnemonic ('-' to prompt)"`
	Passphrase string `long:"passphrase" description:"BIP-39 passphrase ('-' to prompt)"`
	HDPath     string `long:"hdpath" description:"Derivation path of the account"`
	Account    uint32 `long:"account" description:"Child index under the derivation path"`
	Random     bool   `long:"random" description:"Use a freshly generated key"`

	Remote bool           `long:"remote" description:"Sign through the wallet bridge instead of a local key"`
	Bridge *bridge.Config `group:"Bridge" namespace:"bridge"`

	LogDir     string `long:"logdir" description:"Directory to log output"`
	DebugLevel string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
}

// defaultConfig returns the config with every default applied.
func defaultConfig() *config {
	return &config{
		Bridge:     bridge.DefaultConfig(),
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}
}

// network returns the parsed network option.
func (c *config) network() (network.Type, error) {
	return network.ParseType(c.Network)
}

// addressType returns the parsed address type option.
func (c *config) addressType() (wallet.AddressType, error) {
	return wallet.ParseAddressType(c.AddressType)
}

// validate checks that exactly one key source is selected and resolves
// secrets that must be prompted for.
func (c *config) validate() error {
	sources := 0
	for _, set := range []bool{
		c.PrivKey != "", c.Mnemonic != "", c.Random, c.Remote,
	} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("--privkey, --mnemonic, --random and " +
			"--remote are mutually exclusive")
	}

	if c.Remote {
		return c.Bridge.Validate()
	}

	var err error
	if c.PrivKey == promptValue {
		c.PrivKey, err = promptSecret("Private key: ")
		if err != nil {
			return err
		}
	}

	if c.Mnemonic == promptValue {
		c.Mnemonic, err = promptSecret("Mnemonic: ")
		if err != nil {
			return err
		}
	}

	if c.Passphrase == promptValue {
		c.Passphrase, err = promptSecret("Passphrase: ")
		if err != nil {
			return err
		}
	}

	return nil
}

// mnemonicParams returns the mnemonic options.
func (c *config) mnemonicParams() keychain.MnemonicParams {
	return keychain.MnemonicParams{
		Mnemonic:     c.Mnemonic,
		Passphrase:   c.Passphrase,
		HDPath:       c.HDPath,
		AccountIndex: c.Account,
	}
}

// promptSecret reads a line from the terminal without echoing it.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for secret: stdin is " +
			"not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(secret)), nil
}
