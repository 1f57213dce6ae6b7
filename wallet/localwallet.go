// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcsigner/keychain"
	"github.com/btcsuite/btcsigner/network"
)

var (
	// ErrNilPrivKey is returned when a wallet is created without key
	// material.
	ErrNilPrivKey = errors.New("nil private key")
)

// LocalWallet binds a single private key to one address type on one
// network and signs messages and PSBTs with it.
//
// A LocalWallet is owned by exactly one signer and is not safe for
// concurrent use.
type LocalWallet struct {
	privKey  *btcec.PrivateKey
	pubKey   *btcec.PublicKey
	addr     btcutil.Address
	pkScript []byte
	addrType AddressType
	net      network.Type
}

// New creates a wallet from a WIF encoded private key. The WIF must belong
// to net.
func New(wif string, addrType AddressType,
	net network.Type) (*LocalWallet, error) {

	privKey, err := keychain.DecodeWIF(wif, net)
	if err != nil {
		return nil, err
	}

	return NewFromKey(privKey, addrType, net)
}

// NewFromKey creates a wallet from an already decoded private key.
func NewFromKey(privKey *btcec.PrivateKey, addrType AddressType,
	net network.Type) (*LocalWallet, error) {

	switch {
	case privKey == nil:
		return nil, ErrNilPrivKey

	case keychain.CheckPrivateKey(privKey) != nil:
		return nil, keychain.ErrKeyOutOfRange

	case !addrType.Valid():
		return nil, fmt.Errorf("%w: %v", ErrUnknownAddrType, addrType)

	case !net.Valid():
		return nil, fmt.Errorf("%w: %v", network.ErrUnknownNetwork, net)
	}

	pubKey := privKey.PubKey()
	addr, err := DeriveAddress(pubKey, addrType, net)
	if err != nil {
		return nil, err
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}

	log.Debugf("Created %v wallet for %s on %v", addrType,
		addr.EncodeAddress(), net)

	return &LocalWallet{
		privKey:  privKey,
		pubKey:   pubKey,
		addr:     addr,
		pkScript: pkScript,
		addrType: addrType,
		net:      net,
	}, nil
}

// FromRandom creates a wallet around a freshly generated key.
func FromRandom(addrType AddressType, net network.Type) (*LocalWallet,
	error) {

	privKey, err := keychain.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("unable to generate key: %w", err)
	}

	return NewFromKey(privKey, addrType, net)
}

// FromMnemonic creates a wallet around the key derived from a mnemonic.
func FromMnemonic(addrType AddressType, net network.Type,
	params keychain.MnemonicParams) (*LocalWallet, error) {

	privKey, err := keychain.FromMnemonic(params, net)
	if err != nil {
		return nil, err
	}

	return NewFromKey(privKey, addrType, net)
}

// Address returns the encoded address of the wallet.
func (w *LocalWallet) Address() string {
	return w.addr.EncodeAddress()
}

// PublicKey returns the hex encoded compressed public key. For taproot
// wallets this is the untweaked internal key.
func (w *LocalWallet) PublicKey() string {
	return hex.EncodeToString(w.pubKey.SerializeCompressed())
}

// NetworkType returns the network the wallet is bound to.
func (w *LocalWallet) NetworkType() network.Type {
	return w.net
}

// AddressType returns the script type the wallet is bound to.
func (w *LocalWallet) AddressType() AddressType {
	return w.addrType
}

// PkScript returns a copy of the output script paying to the wallet.
func (w *LocalWallet) PkScript() []byte {
	return append([]byte(nil), w.pkScript...)
}

// PrivateKeyWIF returns the wallet's key in its canonical WIF encoding.
func (w *LocalWallet) PrivateKeyWIF() (string, error) {
	return keychain.EncodeWIF(w.privKey, w.net)
}

// matchesPubKey reports whether the hex encoded key refers to the wallet's
// key. Taproot wallets also accept the x-only internal key.
func (w *LocalWallet) matchesPubKey(pubKeyHex string) bool {
	raw, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}

	switch len(raw) {
	case btcec.PubKeyBytesLenCompressed:
		pubKey, err := btcec.ParsePubKey(raw)
		if err != nil {
			return false
		}

		return pubKey.IsEqual(w.pubKey)

	case schnorr.PubKeyBytesLen:
		if !w.addrType.IsTaproot() {
			return false
		}

		return bytes.Equal(raw, schnorr.SerializePubKey(w.pubKey))

	default:
		return false
	}
}
