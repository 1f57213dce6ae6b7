// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package network defines the networks a signer can be bound to and maps
// them onto btcd chain parameters.
package network

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrUnknownNetwork is returned when a network name or chain parameter
	// set does not map onto a supported network.
	ErrUnknownNetwork = errors.New("unknown network")
)

// Type identifies the bitcoin network a key or signer is bound to.
type Type uint8

const (
	// Mainnet is the main bitcoin network.
	Mainnet Type = iota

	// Testnet is the public test network (testnet3).
	Testnet

	// Regtest is the local regression test network.
	Regtest
)

// Types lists every supported network in declaration order.
var Types = []Type{Mainnet, Testnet, Regtest}

// String returns the canonical lowercase name of the network.
func (t Type) String() string {
	switch t {
	case Mainnet:
		return "mainnet"

	case Testnet:
		return "testnet"

	case Regtest:
		return "regtest"

	default:
		return fmt.Sprintf("unknown network (%d)", uint8(t))
	}
}

// Params returns the chain parameters for the network. Unknown values fall
// back to mainnet parameters.
func (t Type) Params() *chaincfg.Params {
	switch t {
	case Testnet:
		return &chaincfg.TestNet3Params

	case Regtest:
		return &chaincfg.RegressionNetParams

	default:
		return &chaincfg.MainNetParams
	}
}

// Valid reports whether t is one of the supported networks.
func (t Type) Valid() bool {
	return t <= Regtest
}

// ParseType parses a network name as produced by Type.String.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if t.String() == s {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
}

// FromParams returns the network matching the passed chain parameters.
func FromParams(params *chaincfg.Params) (Type, error) {
	if params == nil {
		return 0, fmt.Errorf("%w: nil chain params", ErrUnknownNetwork)
	}

	for _, t := range Types {
		if t.Params().Net == params.Net {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownNetwork, params.Name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNetwork, uint8(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}
