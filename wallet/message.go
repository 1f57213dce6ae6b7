// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcsigner/network"
)

const (
	// messageMagic is the prefix of the Bitcoin signed message digest.
	messageMagic = "Bitcoin Signed Message:\n"

	// bip322Tag is the BIP-340 tag of the BIP-322 message hash.
	bip322Tag = "BIP0322-signed-message"

	// maxWitnessItemSize bounds a single decoded witness item.
	maxWitnessItemSize = 10_000
)

var (
	// ErrUnknownMessageType is returned for an unsupported message
	// signature scheme.
	ErrUnknownMessageType = errors.New("unknown message signature type")

	// ErrUnsupportedBIP322 is returned when BIP-322 simple signatures are
	// requested for an address type that cannot produce them.
	ErrUnsupportedBIP322 = errors.New("bip322-simple is not supported " +
		"for this address type")

	// ErrInvalidSignature is returned when a message signature does not
	// verify.
	ErrInvalidSignature = errors.New("invalid message signature")
)

// MessageSignType selects the message signature scheme.
type MessageSignType string

const (
	// MessageECDSA is the legacy Bitcoin signed message scheme producing
	// a base64 compact recoverable signature.
	MessageECDSA MessageSignType = "ecdsa"

	// MessageBIP322Simple is the BIP-322 simple scheme producing a base64
	// serialized witness stack.
	MessageBIP322Simple MessageSignType = "bip322-simple"
)

// normalize maps the empty scheme to MessageECDSA and rejects unknown ones.
func (m MessageSignType) normalize() (MessageSignType, error) {
	switch m {
	case "", MessageECDSA:
		return MessageECDSA, nil

	case MessageBIP322Simple:
		return m, nil

	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, string(m))
	}
}

// SignMessage signs msg with the wallet's key using the given scheme and
// returns the base64 encoded signature.
func (w *LocalWallet) SignMessage(msg string,
	scheme MessageSignType) (string, error) {

	scheme, err := scheme.normalize()
	if err != nil {
		return "", err
	}

	switch scheme {
	case MessageBIP322Simple:
		return w.signBIP322(msg)

	default:
		sig := ecdsa.SignCompact(w.privKey, messageHash(msg), true)

		return base64.StdEncoding.EncodeToString(sig), nil
	}
}

// signBIP322 produces a BIP-322 simple signature: the witness of the
// virtual to_sign transaction.
func (w *LocalWallet) signBIP322(msg string) (string, error) {
	toSign, fetcher := bip322Transactions(msg, w.pkScript)
	sigHashes := txscript.NewTxSigHashes(toSign, fetcher)

	var (
		witness wire.TxWitness
		err     error
	)
	switch w.addrType {
	case P2WPKH:
		witness, err = txscript.WitnessSignature(
			toSign, sigHashes, 0, 0, w.pkScript,
			txscript.SigHashAll, w.privKey, true,
		)

	case P2TR:
		witness, err = txscript.TaprootWitnessSignature(
			toSign, sigHashes, 0, 0, w.pkScript,
			txscript.SigHashDefault, w.privKey,
		)

	// Legacy and nested segwit outputs need a scriptSig, which the simple
	// format cannot carry.
	default:
		return "", fmt.Errorf("%w: %v", ErrUnsupportedBIP322,
			w.addrType)
	}
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := psbt.WriteTxWitness(&buf, witness); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VerifyMessage checks a signature produced by SignMessage against the
// address it claims to come from.
func VerifyMessage(address string, net network.Type, msg, signature string,
	scheme MessageSignType) error {

	scheme, err := scheme.normalize()
	if err != nil {
		return err
	}

	addr, err := btcutil.DecodeAddress(address, net.Params())
	if err != nil {
		return err
	}

	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if scheme == MessageBIP322Simple {
		return verifyBIP322(addr, msg, rawSig)
	}

	pubKey, _, err := ecdsa.RecoverCompact(rawSig, messageHash(msg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	// The compact signature does not commit to a script type, so any
	// address derived from the recovered key is accepted.
	for _, addrType := range AddressTypes {
		derived, err := DeriveAddress(pubKey, addrType, net)
		if err != nil {
			return err
		}

		if derived.EncodeAddress() == addr.EncodeAddress() {
			return nil
		}
	}

	return ErrInvalidSignature
}

// verifyBIP322 runs the script engine over the to_sign transaction with the
// decoded witness.
func verifyBIP322(addr btcutil.Address, msg string, rawSig []byte) error {
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return err
	}

	witness, err := readWitness(rawSig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	toSign, fetcher := bip322Transactions(msg, pkScript)
	toSign.TxIn[0].Witness = witness
	sigHashes := txscript.NewTxSigHashes(toSign, fetcher)

	vm, err := txscript.NewEngine(
		pkScript, toSign, 0, txscript.StandardVerifyFlags, nil,
		sigHashes, 0, fetcher,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if err := vm.Execute(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return nil
}

// messageHash returns the double SHA-256 digest of the magic prefixed
// message.
func messageHash(msg string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, msg)

	return chainhash.DoubleHashB(buf.Bytes())
}

// bip322Transactions builds the unsigned to_sign transaction for msg and a
// fetcher for the single to_spend output it spends.
func bip322Transactions(msg string,
	pkScript []byte) (*wire.MsgTx, txscript.PrevOutputFetcher) {

	msgHash := chainhash.TaggedHash([]byte(bip322Tag), []byte(msg))

	// OP_0 PUSH32[message_hash]
	scriptSig := make([]byte, 0, 2+chainhash.HashSize)
	scriptSig = append(scriptSig, txscript.OP_0, txscript.OP_DATA_32)
	scriptSig = append(scriptSig, msgHash[:]...)

	toSpend := wire.NewMsgTx(0)
	toSpend.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  scriptSig,
		Sequence:         0,
	})
	toSpend.AddTxOut(wire.NewTxOut(0, pkScript))

	toSign := wire.NewMsgTx(0)
	toSign.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: toSpend.TxHash()},
		Sequence:         0,
	})
	toSign.AddTxOut(wire.NewTxOut(0, []byte{txscript.OP_RETURN}))

	return toSign, txscript.NewCannedPrevOutputFetcher(pkScript, 0)
}

// readWitness decodes a serialized witness stack.
func readWitness(raw []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(raw)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	if count > uint64(len(raw)) {
		return nil, fmt.Errorf("witness item count %d too large", count)
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(
			r, 0, maxWitnessItemSize, "witness item",
		)
		if err != nil {
			return nil, err
		}

		witness = append(witness, item)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after witness",
			r.Len())
	}

	return witness, nil
}
