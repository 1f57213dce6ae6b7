// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package remote

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	opGetAccounts = "getAccounts"
	opSignMessage = "signMessage"
	opSignPsbt    = "signPsbt"
	opSignPsbts   = "signPsbts"
	opGetNetwork  = "getNetwork"
)

// Signer implements signer.Signer by forwarding every call to a Provider.
// It holds no identity of its own; address and network are asked for on
// every call.
type Signer struct {
	provider Provider
}

// A compile time check to ensure Signer implements signer.Signer.
var _ signer.Signer = (*Signer)(nil)

// New returns a remote signer for p. It fails if p is not available.
func New(p Provider) (*Signer, error) {
	if !IsAvailable(p) {
		return nil, ErrProviderUnavailable
	}

	return &Signer{provider: p}, nil
}

// Address always fails; use Accounts.
func (s *Signer) Address() fn.Result[string] {
	return fn.Err[string](ErrSyncAccessUnsupported)
}

// PublicKey always fails; the provider only exposes it asynchronously.
func (s *Signer) PublicKey() fn.Result[string] {
	return fn.Err[string](ErrSyncAccessUnsupported)
}

// NetworkType always fails; use Network.
func (s *Signer) NetworkType() fn.Result[network.Type] {
	return fn.Err[network.Type](ErrSyncAccessUnsupported)
}

// Accounts returns the provider's connected accounts. An empty list is an
// error of kind ErrNoAccounts.
func (s *Signer) Accounts(ctx context.Context) ([]string, error) {
	accounts, err := s.provider.GetAccounts(ctx)
	if err != nil {
		return nil, wrapErr(opGetAccounts, err)
	}

	if len(accounts) == 0 {
		return nil, &Error{
			Op:      opGetAccounts,
			Message: "provider returned no accounts",
			kind:    ErrNoAccounts,
		}
	}

	return accounts, nil
}

// Network returns the provider's active network.
func (s *Signer) Network(ctx context.Context) (network.Type, error) {
	name, err := s.provider.GetNetwork(ctx)
	if err != nil {
		return 0, wrapErr(opGetNetwork, err)
	}

	net, err := ParseProviderNetwork(name)
	if err != nil {
		return 0, wrapErr(opGetNetwork, err)
	}

	return net, nil
}

// SignMessage asks the provider to sign message.
func (s *Signer) SignMessage(ctx context.Context, message string,
	scheme signer.MessageSignType) (string, error) {

	if scheme == "" {
		scheme = signer.MessageECDSA
	}

	sig, err := s.provider.SignMessage(ctx, message, scheme)
	if err != nil {
		return "", wrapErr(opSignMessage, err)
	}

	return sig, nil
}

// SignPsbt sends the hex form of p to the provider and parses the result.
// The result is tagged with the network the provider reports after signing,
// which may differ from the one active when signing started.
func (s *Signer) SignPsbt(ctx context.Context, p signer.Psbt,
	opts *signer.PsbtSignOptions) (*signer.SignedPsbt, error) {

	psbtHex, err := p.Hex()
	if err != nil {
		return nil, wrapErr(opSignPsbt, err)
	}

	signedHex, err := s.provider.SignPsbt(ctx, psbtHex, opts)
	if err != nil {
		return nil, wrapErr(opSignPsbt, err)
	}

	net, err := s.Network(ctx)
	if err != nil {
		return nil, wrapErr(opSignPsbt, err)
	}

	signed, err := parseSigned(signedHex, net)
	if err != nil {
		return nil, wrapErr(opSignPsbt, err)
	}

	return signed, nil
}

// SignPsbts sends the whole batch to the provider in one call. The provider
// must return exactly one PSBT per input.
func (s *Signer) SignPsbts(ctx context.Context, psbts []signer.Psbt,
	opts *signer.PsbtSignOptions) ([]*signer.SignedPsbt, error) {

	hexes := make([]string, 0, len(psbts))
	for i, p := range psbts {
		psbtHex, err := p.Hex()
		if err != nil {
			return nil, wrapErr(
				opSignPsbts, fmt.Errorf("psbt %d: %w", i, err),
			)
		}

		hexes = append(hexes, psbtHex)
	}

	signedHexes, err := s.provider.SignPsbts(ctx, hexes, opts)
	if err != nil {
		return nil, wrapErr(opSignPsbts, err)
	}

	if len(signedHexes) != len(hexes) {
		return nil, &Error{
			Op: opSignPsbts,
			Message: fmt.Sprintf("provider returned %d psbts for "+
				"%d inputs", len(signedHexes), len(hexes)),
			kind: ErrProviderOperation,
		}
	}

	net, err := s.Network(ctx)
	if err != nil {
		return nil, wrapErr(opSignPsbts, err)
	}

	results := make([]*signer.SignedPsbt, 0, len(signedHexes))
	for i, signedHex := range signedHexes {
		signed, err := parseSigned(signedHex, net)
		if err != nil {
			return nil, wrapErr(
				opSignPsbts, fmt.Errorf("psbt %d: %w", i, err),
			)
		}

		results = append(results, signed)
	}

	log.Debugf("Provider signed %d psbts on %v", len(results), net)

	return results, nil
}

// parseSigned decodes a signed hex PSBT and tags it with net.
func parseSigned(signedHex string,
	net network.Type) (*signer.SignedPsbt, error) {

	packet, err := signer.ParsePsbtHex(signedHex)
	if err != nil {
		return nil, err
	}

	return &signer.SignedPsbt{Packet: packet, Network: net}, nil
}
