// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package remote adapts an external wallet provider, such as a browser
// extension reached over a bridge, to the signer contract.
package remote

import (
	"context"

	"github.com/btcsuite/btcsigner/signer"
)

// Provider is the set of operations an external wallet exposes. PSBTs cross
// this boundary in hex form and networks in the provider's own vocabulary.
type Provider interface {
	// GetAccounts returns the addresses the user has connected.
	GetAccounts(ctx context.Context) ([]string, error)

	// SignMessage signs message with the connected account.
	SignMessage(ctx context.Context, message string,
		scheme signer.MessageSignType) (string, error)

	// SignPsbt signs a hex encoded PSBT and returns the signed hex.
	SignPsbt(ctx context.Context, psbtHex string,
		opts *signer.PsbtSignOptions) (string, error)

	// SignPsbts signs several hex encoded PSBTs with the same options.
	SignPsbts(ctx context.Context, psbtHexes []string,
		opts *signer.PsbtSignOptions) ([]string, error)

	// GetNetwork returns the provider's active network name.
	GetNetwork(ctx context.Context) (string, error)
}

// availabler is implemented by providers that can report whether they are
// currently reachable.
type availabler interface {
	Available() bool
}

// IsAvailable reports whether p can be used. A nil provider is never
// available; a provider implementing Available() bool is asked.
func IsAvailable(p Provider) bool {
	if p == nil {
		return false
	}

	if a, ok := p.(availabler); ok {
		return a.Available()
	}

	return true
}
