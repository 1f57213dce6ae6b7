// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package signer defines the signing contract shared by every backend and
// implements it on top of a local wallet.
package signer

import (
	"context"

	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// MessageSignType selects the message signature scheme.
type MessageSignType = wallet.MessageSignType

const (
	// MessageECDSA is the Bitcoin signed message scheme. It is used when
	// no scheme is given.
	MessageECDSA = wallet.MessageECDSA

	// MessageBIP322Simple is the BIP-322 simple signature scheme.
	MessageBIP322Simple = wallet.MessageBIP322Simple
)

// Signer signs messages and PSBTs for a single identity.
//
// The synchronous accessors return a result so that backends which can only
// answer identity questions through a round trip report that in the error
// variant instead of panicking or blocking.
type Signer interface {
	// Address returns the address the signer signs for.
	Address() fn.Result[string]

	// PublicKey returns the hex encoded public key of the signer.
	PublicKey() fn.Result[string]

	// NetworkType returns the network the signer is bound to.
	NetworkType() fn.Result[network.Type]

	// SignMessage signs an arbitrary text message. An empty scheme
	// selects MessageECDSA.
	SignMessage(ctx context.Context, message string,
		scheme MessageSignType) (string, error)

	// SignPsbt signs a PSBT given either as hex or as a parsed packet.
	// A nil opts behaves like {AutoFinalized: true}.
	SignPsbt(ctx context.Context, p Psbt,
		opts *PsbtSignOptions) (*SignedPsbt, error)

	// SignPsbts signs every PSBT in order with the same options. The i-th
	// result belongs to the i-th input. The first failure aborts the
	// batch and no results are returned.
	SignPsbts(ctx context.Context, psbts []Psbt,
		opts *PsbtSignOptions) ([]*SignedPsbt, error)
}
