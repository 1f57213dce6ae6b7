package signer

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcsigner/keychain"
	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/wallet"
)

// ErrUnknownStrategy is returned when Params names no construction
// strategy.
var ErrUnknownStrategy = errors.New("unknown construction strategy")

// Strategy selects how a factory obtains key material.
type Strategy uint8

const (
	// StrategyUnknown is the zero value; a factory refuses it.
	StrategyUnknown Strategy = iota

	// StrategyRandom generates a fresh key.
	StrategyRandom

	// StrategyPrivateKey uses Params.PrivateKey.
	StrategyPrivateKey

	// StrategyMnemonic derives the key from Params.Mnemonic.
	StrategyMnemonic
)

// String returns the name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyRandom:
		return "random"

	case StrategyPrivateKey:
		return "privkey"

	case StrategyMnemonic:
		return "mnemonic"

	default:
		return fmt.Sprintf("unknown strategy (%d)", uint8(s))
	}
}

// Params holds the inputs of every construction strategy. Only the fields of
// the selected strategy are read.
type Params struct {
	Strategy Strategy

	// Network defaults to mainnet.
	Network network.Type

	// PrivateKey is a 64 character hex key or a WIF string.
	PrivateKey string

	// Mnemonic holds the phrase, passphrase, HD path and account index.
	Mnemonic keychain.MnemonicParams
}

// Factory builds local signers of a single address type. The zero Factory
// has no address type and builds nothing.
type Factory struct {
	AddressType wallet.AddressType
}

var (
	// P2WPKH builds native segwit v0 signers.
	P2WPKH = Factory{AddressType: wallet.P2WPKH}

	// P2TR builds taproot key spend signers.
	P2TR = Factory{AddressType: wallet.P2TR}

	// P2SHP2WPKH builds nested segwit signers.
	P2SHP2WPKH = Factory{AddressType: wallet.P2SHP2WPKH}

	// P2PKH builds legacy signers.
	P2PKH = Factory{AddressType: wallet.P2PKH}
)

// New builds a signer with the strategy selected in params.
func (f Factory) New(params Params) (*LocalSigner, error) {
	var (
		w   *wallet.LocalWallet
		err error
	)
	switch params.Strategy {
	case StrategyRandom:
		w, err = wallet.FromRandom(f.AddressType, params.Network)

	case StrategyPrivateKey:
		w, err = f.walletFromKey(params.PrivateKey, params.Network)

	case StrategyMnemonic:
		w, err = wallet.FromMnemonic(
			f.AddressType, params.Network, params.Mnemonic,
		)

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy,
			params.Strategy)
	}
	if err != nil {
		return nil, err
	}

	return NewLocalSigner(f.AddressType, w)
}

// walletFromKey parses a hex or WIF key and hands the wallet its canonical
// WIF encoding.
func (f Factory) walletFromKey(privateKey string,
	net network.Type) (*wallet.LocalWallet, error) {

	privKey, err := keychain.ParsePrivateKey(privateKey, net)
	if err != nil {
		return nil, err
	}

	wif, err := keychain.EncodeWIF(privKey, net)
	if err != nil {
		return nil, err
	}

	return wallet.New(wif, f.AddressType, net)
}

// FromRandom builds a signer around a fresh key.
func (f Factory) FromRandom(net network.Type) (*LocalSigner, error) {
	return f.New(Params{Strategy: StrategyRandom, Network: net})
}

// FromPrivateKey builds a signer around a key given as 64 hex characters or
// as WIF. The format is chosen by length alone.
func (f Factory) FromPrivateKey(privateKey string,
	net network.Type) (*LocalSigner, error) {

	return f.New(Params{
		Strategy:   StrategyPrivateKey,
		Network:    net,
		PrivateKey: privateKey,
	})
}

// MnemonicOptions are the inputs of FromMnemonic.
type MnemonicOptions struct {
	keychain.MnemonicParams

	Network network.Type
}

// FromMnemonic builds a signer around a key derived from a mnemonic.
func (f Factory) FromMnemonic(opts MnemonicOptions) (*LocalSigner, error) {
	return f.New(Params{
		Strategy: StrategyMnemonic,
		Network:  opts.Network,
		Mnemonic: opts.MnemonicParams,
	})
}
