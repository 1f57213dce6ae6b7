// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcsigner/network"
)

var (
	// ErrUnknownAddrType is returned when an address type outside the
	// supported set is used.
	ErrUnknownAddrType = errors.New("unknown address type")
)

// AddressType is the script template a wallet's key is bound to.
type AddressType uint8

const (
	// AddressTypeUnknown is the zero value and is never valid.
	AddressTypeUnknown AddressType = iota

	// P2PKH is a legacy pay-to-pubkey-hash address.
	P2PKH

	// P2WPKH is a native segwit v0 pay-to-witness-pubkey-hash address.
	P2WPKH

	// P2SHP2WPKH is a P2WPKH output nested in a P2SH script.
	P2SHP2WPKH

	// P2TR is a segwit v1 single key taproot address (BIP-86 key spend).
	P2TR
)

// AddressTypes lists every supported address type.
var AddressTypes = []AddressType{P2PKH, P2WPKH, P2SHP2WPKH, P2TR}

// String returns the lowercase name of the address type.
func (a AddressType) String() string {
	switch a {
	case P2PKH:
		return "p2pkh"

	case P2WPKH:
		return "p2wpkh"

	case P2SHP2WPKH:
		return "p2sh-p2wpkh"

	case P2TR:
		return "p2tr"

	default:
		return fmt.Sprintf("unknown address type (%d)", uint8(a))
	}
}

// Valid reports whether a is a supported address type.
func (a AddressType) Valid() bool {
	return a >= P2PKH && a <= P2TR
}

// IsTaproot reports whether inputs of this type are signed with Schnorr
// signatures.
func (a AddressType) IsTaproot() bool {
	return a == P2TR
}

// ParseAddressType parses a name produced by AddressType.String.
func ParseAddressType(s string) (AddressType, error) {
	for _, a := range AddressTypes {
		if a.String() == s {
			return a, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownAddrType, s)
}

// DeriveAddress returns the address of the given type paying to pubKey on
// net.
func DeriveAddress(pubKey *btcec.PublicKey, addrType AddressType,
	net network.Type) (btcutil.Address, error) {

	params := net.Params()
	pkHash := btcutil.Hash160(pubKey.SerializeCompressed())

	switch addrType {
	case P2PKH:
		return btcutil.NewAddressPubKeyHash(pkHash, params)

	case P2WPKH:
		return btcutil.NewAddressWitnessPubKeyHash(pkHash, params)

	case P2SHP2WPKH:
		program, err := witnessProgram(pkHash, params)
		if err != nil {
			return nil, err
		}

		return btcutil.NewAddressScriptHash(program, params)

	case P2TR:
		outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)

		return btcutil.NewAddressTaproot(
			schnorr.SerializePubKey(outputKey), params,
		)

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownAddrType, addrType)
	}
}

// witnessProgram returns the P2WPKH script for the key hash. It doubles as
// the redeem script of a nested P2WPKH output.
func witnessProgram(pkHash []byte, params *chaincfg.Params) ([]byte,
	error) {

	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, params)
	if err != nil {
		return nil, err
	}

	return txscript.PayToAddrScript(addr)
}
