// Copyright (c) 2020 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

var (
	// ErrNilPacket is returned when a nil PSBT is passed for signing.
	ErrNilPacket = errors.New("nil psbt packet")

	// ErrInputIndexOutOfRange is returned when a to-sign input refers to
	// an input the PSBT does not have.
	ErrInputIndexOutOfRange = errors.New("input index out of range")

	// ErrDuplicateInput is returned when the same input is listed twice.
	ErrDuplicateInput = errors.New("input listed more than once")

	// ErrToSignInputMismatch is returned when the address or public key
	// of a to-sign input does not belong to the wallet.
	ErrToSignInputMismatch = errors.New("to-sign input does not match " +
		"the wallet")

	// ErrMissingUtxo is returned when an input to sign carries no
	// previous output information.
	ErrMissingUtxo = errors.New("input has no utxo information")

	// ErrUtxoMismatch is returned when the non-witness utxo of an input
	// does not match its outpoint.
	ErrUtxoMismatch = errors.New("utxo does not match input outpoint")

	// ErrNotMine is returned when the previous output of an input to sign
	// cannot be spent by the wallet's key.
	ErrNotMine = errors.New("input does not belong to the wallet")

	// ErrSighashNotAllowed is returned when an input's sighash type is
	// not in the allowed list.
	ErrSighashNotAllowed = errors.New("sighash type not allowed")

	// ErrTapLeafNotFound is returned when the requested tap leaf is not
	// among the input's leaf scripts.
	ErrTapLeafNotFound = errors.New("tap leaf not found in input")
)

// SignPsbt signs the selected inputs of the packet in place and returns it.
// When opts.AutoFinalized is set every signed input is finalized.
func (w *LocalWallet) SignPsbt(packet *psbt.Packet,
	opts SignPsbtOptions) (*psbt.Packet, error) {

	if packet == nil || packet.UnsignedTx == nil {
		return nil, ErrNilPacket
	}

	toSign, err := w.inputsToSign(packet, opts.ToSignInputs)
	if err != nil {
		return nil, err
	}

	if len(toSign) == 0 {
		log.Debugf("No inputs of psbt %v belong to %s",
			packet.UnsignedTx.TxHash(), w.Address())

		return packet, nil
	}

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return nil, err
	}

	fetcher, complete := PsbtPrevOutputFetcher(packet)
	sigHashes := txscript.NewTxSigHashes(packet.UnsignedTx, fetcher)

	for _, in := range toSign {
		ctx := &signContext{
			packet:    packet,
			updater:   updater,
			fetcher:   fetcher,
			sigHashes: sigHashes,
			complete:  complete,
		}

		err := w.signInput(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("unable to sign input %d: %w",
				in.Index, err)
		}
	}

	if opts.AutoFinalized {
		for _, in := range toSign {
			err := psbt.Finalize(packet, in.Index)
			if err != nil {
				return nil, fmt.Errorf("unable to finalize "+
					"input %d: %w", in.Index, err)
			}
		}
	}

	log.Tracef("Signed psbt: %v", newLogClosure(func() string {
		return spew.Sdump(packet)
	}))

	return packet, nil
}

// signContext bundles the per-packet state shared by all inputs.
type signContext struct {
	packet    *psbt.Packet
	updater   *psbt.Updater
	fetcher   txscript.PrevOutputFetcher
	sigHashes *txscript.TxSigHashes

	// complete is true if every input carries utxo information.
	complete bool
}

// inputsToSign resolves the list of inputs to sign. An empty target list
// selects every input paying to the wallet.
func (w *LocalWallet) inputsToSign(packet *psbt.Packet,
	targets []ToSignInput) ([]ToSignInput, error) {

	if len(targets) == 0 {
		var owned []ToSignInput
		for idx := range packet.Inputs {
			prevOut, err := prevOutput(packet, idx)
			if err != nil {
				continue
			}

			if bytes.Equal(prevOut.PkScript, w.pkScript) {
				owned = append(owned, ToSignInput{Index: idx})
			}
		}

		return owned, nil
	}

	seen := make(map[int]struct{}, len(targets))
	for _, t := range targets {
		if t.Index < 0 || t.Index >= len(packet.Inputs) {
			return nil, fmt.Errorf("%w: %d", ErrInputIndexOutOfRange,
				t.Index)
		}

		if _, ok := seen[t.Index]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateInput,
				t.Index)
		}
		seen[t.Index] = struct{}{}

		if t.Address != "" && t.Address != w.Address() {
			return nil, fmt.Errorf("%w: input %d address %s",
				ErrToSignInputMismatch, t.Index, t.Address)
		}

		if t.PublicKey != "" && !w.matchesPubKey(t.PublicKey) {
			return nil, fmt.Errorf("%w: input %d public key %s",
				ErrToSignInputMismatch, t.Index, t.PublicKey)
		}
	}

	return targets, nil
}

// signInput adds the wallet's signature for one input.
func (w *LocalWallet) signInput(ctx *signContext, in ToSignInput) error {
	pInput := &ctx.packet.Inputs[in.Index]

	prevOut, err := prevOutput(ctx.packet, in.Index)
	if err != nil {
		return err
	}

	// For ECDSA inputs a zero sighash means "not set" and defaults to
	// SIGHASH_ALL. For taproot zero is SIGHASH_DEFAULT.
	hashType := pInput.SighashType
	if hashType == 0 && !w.addrType.IsTaproot() {
		hashType = txscript.SigHashAll
	}

	if !in.allowedSighash(hashType, w.addrType.IsTaproot()) {
		return fmt.Errorf("%w: %v", ErrSighashNotAllowed, hashType)
	}

	if w.addrType.IsTaproot() {
		return w.signTaprootInput(ctx, in, prevOut, hashType)
	}

	if !bytes.Equal(prevOut.PkScript, w.pkScript) {
		return fmt.Errorf("%w: pkscript %x", ErrNotMine,
			prevOut.PkScript)
	}

	tx := ctx.packet.UnsignedTx
	pubKey := w.pubKey.SerializeCompressed()

	var (
		sig          []byte
		redeemScript []byte
	)
	switch w.addrType {
	case P2PKH:
		// Legacy inputs commit to the full previous transaction.
		if pInput.NonWitnessUtxo == nil {
			return ErrMissingUtxo
		}

		sig, err = txscript.RawTxInSignature(
			tx, in.Index, w.pkScript, hashType, w.privKey,
		)

	case P2WPKH:
		sig, err = txscript.RawTxInWitnessSignature(
			tx, ctx.sigHashes, in.Index, prevOut.Value, w.pkScript,
			hashType, w.privKey,
		)

	case P2SHP2WPKH:
		redeemScript, err = witnessProgram(
			btcutil.Hash160(pubKey), w.net.Params(),
		)
		if err != nil {
			return err
		}

		sig, err = txscript.RawTxInWitnessSignature(
			tx, ctx.sigHashes, in.Index, prevOut.Value,
			redeemScript, hashType, w.privKey,
		)

	default:
		return fmt.Errorf("%w: %v", ErrUnknownAddrType, w.addrType)
	}
	if err != nil {
		return err
	}

	outcome, err := ctx.updater.Sign(
		in.Index, sig, pubKey, redeemScript, nil,
	)
	if err != nil {
		return err
	}

	log.Debugf("Added %v signature to input %d (outcome=%v)",
		w.addrType, in.Index, outcome)

	return nil
}

// signTaprootInput adds a Schnorr signature for a key path spend, or for
// the script path leaf selected by TapLeafHashToSign.
func (w *LocalWallet) signTaprootInput(ctx *signContext, in ToSignInput,
	prevOut *wire.TxOut, hashType txscript.SigHashType) error {

	// BIP-341 sighashes commit to every spent output.
	if !ctx.complete {
		return fmt.Errorf("%w: taproot signing needs all prevouts",
			ErrMissingUtxo)
	}

	if !txscript.IsPayToTaproot(prevOut.PkScript) {
		return fmt.Errorf("%w: pkscript %x is not p2tr", ErrNotMine,
			prevOut.PkScript)
	}

	pInput := &ctx.packet.Inputs[in.Index]
	tx := ctx.packet.UnsignedTx

	// Script path spend.
	if len(in.TapLeafHashToSign) > 0 {
		leaf, err := findTapLeaf(pInput, in.TapLeafHashToSign)
		if err != nil {
			return err
		}

		key := w.privKey
		if in.tweakSigner() {
			key = txscript.TweakTaprootPrivKey(*key, nil)
		}

		sigHash, err := txscript.CalcTapscriptSignaturehash(
			ctx.sigHashes, hashType, tx, in.Index, ctx.fetcher,
			leaf,
		)
		if err != nil {
			return err
		}

		sig, err := schnorrSign(key, sigHash)
		if err != nil {
			return err
		}

		leafHash := leaf.TapHash()
		pInput.TaprootScriptSpendSig = append(
			pInput.TaprootScriptSpendSig,
			&psbt.TaprootScriptSpendSig{
				XOnlyPubKey: schnorr.SerializePubKey(
					key.PubKey(),
				),
				LeafHash:  leafHash[:],
				Signature: sig,
				SigHash:   hashType,
			},
		)

		log.Debugf("Added tapscript signature to input %d for leaf %v",
			in.Index, leafHash)

		return nil
	}

	// Key path spend. The tweak commits to the input's merkle root, which
	// is empty for BIP-86 outputs.
	key := w.privKey
	if in.tweakSigner() {
		key = txscript.TweakTaprootPrivKey(
			*key, pInput.TaprootMerkleRoot,
		)
	}

	outputKey := prevOut.PkScript[2:]
	if !bytes.Equal(schnorr.SerializePubKey(key.PubKey()), outputKey) {
		return fmt.Errorf("%w: output key %x", ErrNotMine, outputKey)
	}

	sigHash, err := txscript.CalcTaprootSignatureHash(
		ctx.sigHashes, hashType, tx, in.Index, ctx.fetcher,
	)
	if err != nil {
		return err
	}

	sig, err := schnorrSign(key, sigHash)
	if err != nil {
		return err
	}

	// Key spend signatures carry the sighash flag unless it is
	// SIGHASH_DEFAULT.
	if hashType != txscript.SigHashDefault {
		sig = append(sig, byte(hashType))
	}
	pInput.TaprootKeySpendSig = sig
	if len(pInput.TaprootInternalKey) == 0 && in.tweakSigner() {
		pInput.TaprootInternalKey = schnorr.SerializePubKey(w.pubKey)
	}

	log.Debugf("Added taproot key spend signature to input %d", in.Index)

	return nil
}

// schnorrSign signs the sighash and returns the 64 byte signature.
func schnorrSign(key *btcec.PrivateKey, sigHash []byte) ([]byte, error) {
	sig, err := schnorr.Sign(key, sigHash)
	if err != nil {
		return nil, err
	}

	return sig.Serialize(), nil
}

// findTapLeaf returns the leaf script of the input whose tap hash matches.
func findTapLeaf(pInput *psbt.PInput,
	leafHash []byte) (txscript.TapLeaf, error) {

	for _, leafScript := range pInput.TaprootLeafScript {
		leaf := txscript.NewTapLeaf(
			leafScript.LeafVersion, leafScript.Script,
		)

		hash := leaf.TapHash()
		if bytes.Equal(hash[:], leafHash) {
			return leaf, nil
		}
	}

	return txscript.TapLeaf{}, fmt.Errorf("%w: %x", ErrTapLeafNotFound,
		leafHash)
}

// prevOutput returns the output spent by the input at idx. The full
// non-witness utxo is preferred and checked against the outpoint.
func prevOutput(packet *psbt.Packet, idx int) (*wire.TxOut, error) {
	in := packet.Inputs[idx]
	txIn := packet.UnsignedTx.TxIn[idx]

	if in.NonWitnessUtxo != nil {
		prevIndex := txIn.PreviousOutPoint.Index
		if in.NonWitnessUtxo.TxHash() != txIn.PreviousOutPoint.Hash ||
			int(prevIndex) >= len(in.NonWitnessUtxo.TxOut) {

			return nil, fmt.Errorf("%w: %v", ErrUtxoMismatch,
				txIn.PreviousOutPoint)
		}

		return in.NonWitnessUtxo.TxOut[prevIndex], nil
	}

	if in.WitnessUtxo != nil {
		return in.WitnessUtxo, nil
	}

	return nil, fmt.Errorf("%w: input %d", ErrMissingUtxo, idx)
}

// PsbtPrevOutputFetcher returns a txscript.PrevOutputFetcher built from the
// UTXO information in a PSBT packet. Inputs without UTXO information are
// mapped to an empty output so sighash midstate computation never sees a
// nil output; the returned flag reports whether every input was known.
func PsbtPrevOutputFetcher(packet *psbt.Packet) (*txscript.MultiPrevOutFetcher,
	bool) {

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	complete := true
	for idx, txIn := range packet.UnsignedTx.TxIn {
		if idx >= len(packet.Inputs) {
			complete = false
			fetcher.AddPrevOut(txIn.PreviousOutPoint, &wire.TxOut{})

			continue
		}

		prevOut, err := prevOutput(packet, idx)
		if err != nil {
			complete = false
			fetcher.AddPrevOut(txIn.PreviousOutPoint, &wire.TxOut{})

			continue
		}

		fetcher.AddPrevOut(txIn.PreviousOutPoint, prevOut)
	}

	return fetcher, complete
}
