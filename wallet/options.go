// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SignPsbtOptions controls which inputs of a PSBT are signed and whether the
// signed inputs are finalized afterwards.
type SignPsbtOptions struct {
	// AutoFinalized finalizes every input signed by the call.
	AutoFinalized bool

	// ToSignInputs lists the inputs to sign. When empty, every input
	// whose previous output pays to the wallet is signed.
	ToSignInputs []ToSignInput
}

// ToSignInput describes one input to sign.
type ToSignInput struct {
	// Index is the position of the input in the unsigned transaction.
	Index int

	// Address, when set, must be the wallet's address.
	Address string

	// PublicKey, when set, must be the wallet's hex encoded public key.
	PublicKey string

	// SighashTypes is the list of sighash types the input may be signed
	// with. When empty, only SIGHASH_ALL (or SIGHASH_DEFAULT for taproot)
	// is accepted.
	SighashTypes []int

	// UseTweakedSigner forces signing with the taproot-tweaked key.
	UseTweakedSigner fn.Option[bool]

	// DisableTweakSigner forces signing with the untweaked key.
	DisableTweakSigner fn.Option[bool]

	// TapLeafHashToSign selects a taproot script path spend of the leaf
	// with this hash.
	TapLeafHashToSign []byte
}

// tweakSigner reports whether a taproot input is signed with the tweaked
// key. Key path spends are tweaked unless disabled, script path spends are
// not tweaked unless requested.
func (t ToSignInput) tweakSigner() bool {
	if t.DisableTweakSigner.UnwrapOr(false) {
		return false
	}

	return t.UseTweakedSigner.UnwrapOr(len(t.TapLeafHashToSign) == 0)
}

// allowedSighash reports whether hashType may be used for this input.
func (t ToSignInput) allowedSighash(hashType txscript.SigHashType,
	taproot bool) bool {

	if len(t.SighashTypes) == 0 {
		if taproot {
			return hashType == txscript.SigHashDefault
		}

		return hashType == txscript.SigHashAll
	}

	for _, allowed := range t.SighashTypes {
		if allowed >= 0 && txscript.SigHashType(allowed) == hashType {
			return true
		}
	}

	return false
}
