// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrAddressTypeMismatch is returned when a signer for one address
	// type is constructed around a wallet of another type.
	ErrAddressTypeMismatch = errors.New("wallet address type does not " +
		"match signer")

	// ErrNilWallet is returned when a local signer is constructed without
	// a wallet.
	ErrNilWallet = errors.New("nil wallet")
)

// LocalSigner implements Signer with a key held in process. It owns its
// wallet exclusively.
type LocalSigner struct {
	addrType wallet.AddressType
	wallet   *wallet.LocalWallet
}

// A compile time check to ensure LocalSigner implements Signer.
var _ Signer = (*LocalSigner)(nil)

// NewLocalSigner binds w to a signer for addrType. A wallet of any other
// address type is rejected.
func NewLocalSigner(addrType wallet.AddressType,
	w *wallet.LocalWallet) (*LocalSigner, error) {

	if w == nil {
		return nil, ErrNilWallet
	}

	if w.AddressType() != addrType {
		return nil, fmt.Errorf("%w: %v signer given %v wallet",
			ErrAddressTypeMismatch, addrType, w.AddressType())
	}

	log.Debugf("Created %v signer for %s", addrType, w.Address())

	return &LocalSigner{
		addrType: addrType,
		wallet:   w,
	}, nil
}

// NewP2WPKHSigner binds a P2WPKH wallet to a signer.
func NewP2WPKHSigner(w *wallet.LocalWallet) (*LocalSigner, error) {
	return NewLocalSigner(wallet.P2WPKH, w)
}

// NewP2TRSigner binds a P2TR wallet to a signer.
func NewP2TRSigner(w *wallet.LocalWallet) (*LocalSigner, error) {
	return NewLocalSigner(wallet.P2TR, w)
}

// AddressType returns the address type the signer is specialized for.
func (s *LocalSigner) AddressType() wallet.AddressType {
	return s.addrType
}

// Wallet returns the wallet the signer wraps.
func (s *LocalSigner) Wallet() *wallet.LocalWallet {
	return s.wallet
}

// Address returns the wallet's address.
func (s *LocalSigner) Address() fn.Result[string] {
	return fn.Ok(s.wallet.Address())
}

// PublicKey returns the wallet's hex encoded public key.
func (s *LocalSigner) PublicKey() fn.Result[string] {
	return fn.Ok(s.wallet.PublicKey())
}

// NetworkType returns the wallet's network.
func (s *LocalSigner) NetworkType() fn.Result[network.Type] {
	return fn.Ok(s.wallet.NetworkType())
}

// SignMessage signs message with the wallet's key.
func (s *LocalSigner) SignMessage(ctx context.Context, message string,
	scheme MessageSignType) (string, error) {

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return s.wallet.SignMessage(message, scheme)
}

// SignPsbt parses p if it is hex and signs it with the wallet. The result
// is tagged with the wallet's network.
func (s *LocalSigner) SignPsbt(ctx context.Context, p Psbt,
	opts *PsbtSignOptions) (*SignedPsbt, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	packet, err := p.Packet()
	if err != nil {
		return nil, err
	}

	signed, err := s.wallet.SignPsbt(packet, normalizeOptions(opts))
	if err != nil {
		return nil, err
	}

	return &SignedPsbt{
		Packet:  signed,
		Network: s.wallet.NetworkType(),
	}, nil
}

// SignPsbts signs each PSBT in turn. The wallet is not safe for concurrent
// use, so the batch is strictly sequential.
func (s *LocalSigner) SignPsbts(ctx context.Context, psbts []Psbt,
	opts *PsbtSignOptions) ([]*SignedPsbt, error) {

	results := make([]*SignedPsbt, 0, len(psbts))
	for i, p := range psbts {
		signed, err := s.SignPsbt(ctx, p, opts)
		if err != nil {
			return nil, fmt.Errorf("psbt %d: %w", i, err)
		}

		results = append(results, signed)
	}

	log.Debugf("Signed %d psbts for %s", len(results),
		s.wallet.Address())

	return results, nil
}
