// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcsigner/network"
	"github.com/tyler-smith/go-bip39"
)

// DefaultHDPath is the account path used when a mnemonic is given without
// one. The child index (MnemonicParams.AccountIndex) is appended to it.
const DefaultHDPath = "m/44'/0'/0'/0"

var (
	// ErrInvalidMnemonic is returned when a phrase fails BIP-39 word list
	// or checksum validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
)

// MnemonicParams holds the inputs for deriving a key from a mnemonic.
type MnemonicParams struct {
	// Mnemonic is the BIP-39 phrase. Surrounding and repeated whitespace
	// is ignored.
	Mnemonic string

	// Passphrase is the optional BIP-39 passphrase.
	Passphrase string

	// HDPath is the optional account path. DefaultHDPath is used when it
	// is empty.
	HDPath string

	// AccountIndex is the child index appended to HDPath.
	AccountIndex uint32
}

// DerivationPath returns the full path the key is derived at.
func (p MnemonicParams) DerivationPath() string {
	hdPath := p.HDPath
	if hdPath == "" {
		hdPath = DefaultHDPath
	}

	return fmt.Sprintf("%s/%d", strings.TrimSuffix(hdPath, "/"),
		p.AccountIndex)
}

// FromMnemonic derives the private key described by params. The network
// only affects the version bytes of the intermediate extended keys, so the
// derived key is the same for every network.
func FromMnemonic(params MnemonicParams,
	net network.Type) (*btcec.PrivateKey, error) {

	phrase := strings.Join(strings.Fields(params.Mnemonic), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}

	path, err := ParsePath(params.DerivationPath())
	if err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(phrase, params.Passphrase)
	key, err := hdkeychain.NewMaster(seed, net.Params())
	if err != nil {
		return nil, fmt.Errorf("unable to create master key: %w", err)
	}

	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("unable to derive child %d: %w",
				index, err)
		}
	}

	return key.ECPrivKey()
}

// NewMnemonic generates a fresh BIP-39 phrase with the given amount of
// entropy in bits (128 for 12 words, 256 for 24 words).
func NewMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}
