// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keychain produces secp256k1 key material for local signers: fresh
// random keys, keys decoded from raw hex or WIF strings, and keys derived
// from a BIP-39 mnemonic along a BIP-32 path.
package keychain

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcsigner/network"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// HexKeyLen is the length of a private key encoded as raw hex. Any other
// length is treated as WIF.
const HexKeyLen = 2 * secp.PrivKeyBytesLen

var (
	// ErrInvalidHexKey is returned when a 64 character private key is not
	// valid hex.
	ErrInvalidHexKey = errors.New("invalid hex private key")

	// ErrKeyOutOfRange is returned when a private key is zero or not
	// below the secp256k1 curve order.
	ErrKeyOutOfRange = errors.New("private key is zero or not below the " +
		"curve order")

	// ErrWrongNetwork is returned when a WIF string encodes a key for a
	// different network than the one requested.
	ErrWrongNetwork = errors.New("private key is not for the requested " +
		"network")
)

// NewRandom generates a fresh private key from the system's secure random
// source.
func NewRandom() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey()
}

// ParsePrivateKey decodes a private key given either as exactly HexKeyLen
// hex characters or as a WIF string. The format is selected by length only.
func ParsePrivateKey(privateKey string,
	net network.Type) (*btcec.PrivateKey, error) {

	if len(privateKey) == HexKeyLen {
		raw, err := hex.DecodeString(privateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHexKey, err)
		}

		if err := checkScalar(raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidHexKey, err)
		}

		privKey, _ := btcec.PrivKeyFromBytes(raw)

		return privKey, nil
	}

	return DecodeWIF(privateKey, net)
}

// DecodeWIF decodes a WIF string and checks that it belongs to net.
// Testnet and regtest share a WIF version byte, so a key valid for one is
// accepted for the other.
func DecodeWIF(wif string, net network.Type) (*btcec.PrivateKey, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, err
	}

	if !decoded.IsForNet(net.Params()) {
		return nil, fmt.Errorf("%w: %v", ErrWrongNetwork, net)
	}

	// The decoder reduces the scalar modulo the curve order, so the range
	// is checked on the raw payload: version byte, then the key.
	payload := base58.Decode(wif)
	err = checkScalar(payload[1 : 1+btcec.PrivKeyBytesLen])
	if err != nil {
		return nil, err
	}

	return decoded.PrivKey, nil
}

// CheckPrivateKey returns ErrKeyOutOfRange for the zero key.
func CheckPrivateKey(privKey *btcec.PrivateKey) error {
	if privKey == nil || privKey.Key.IsZero() {
		return ErrKeyOutOfRange
	}

	return nil
}

// checkScalar rejects a big-endian key that is zero or not below the curve
// order.
func checkScalar(raw []byte) error {
	var scalar secp.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return ErrKeyOutOfRange
	}

	return nil
}

// EncodeWIF encodes the key as a compressed WIF string for net.
func EncodeWIF(privKey *btcec.PrivateKey, net network.Type) (string, error) {
	wif, err := btcutil.NewWIF(privKey, net.Params(), true)
	if err != nil {
		return "", err
	}

	return wif.String(), nil
}
