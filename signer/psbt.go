package signer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcsigner/network"
)

var (
	// ErrEmptyPsbt is returned when a Psbt value carries neither a hex
	// string nor a packet.
	ErrEmptyPsbt = errors.New("empty psbt")
)

// Psbt is a PSBT given either in its hex wire form or as a parsed packet.
// Both forms are accepted at every signing boundary.
type Psbt struct {
	hex    string
	packet *psbt.Packet
}

// PsbtHex wraps a hex encoded PSBT.
func PsbtHex(s string) Psbt {
	return Psbt{hex: s}
}

// PsbtPacket wraps an already parsed PSBT. Signing updates the packet in
// place.
func PsbtPacket(p *psbt.Packet) Psbt {
	return Psbt{packet: p}
}

// IsHex reports whether the value holds the hex form.
func (p Psbt) IsHex() bool {
	return p.packet == nil && p.hex != ""
}

// Packet returns the parsed packet, decoding the hex form if needed.
func (p Psbt) Packet() (*psbt.Packet, error) {
	if p.packet != nil {
		return p.packet, nil
	}

	if p.hex == "" {
		return nil, ErrEmptyPsbt
	}

	return ParsePsbtHex(p.hex)
}

// Hex returns the hex form, serializing the packet if needed.
func (p Psbt) Hex() (string, error) {
	if p.packet != nil {
		return SerializePsbtHex(p.packet)
	}

	if p.hex == "" {
		return "", ErrEmptyPsbt
	}

	return p.hex, nil
}

// ParsePsbtHex decodes a hex encoded PSBT.
func ParsePsbtHex(s string) (*psbt.Packet, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid psbt hex: %w", err)
	}

	return psbt.NewFromRawBytes(bytes.NewReader(raw), false)
}

// SerializePsbtHex encodes a packet into its hex form.
func SerializePsbtHex(packet *psbt.Packet) (string, error) {
	if packet == nil {
		return "", ErrEmptyPsbt
	}

	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

// SignedPsbt is a signed packet tagged with the network it was signed for.
type SignedPsbt struct {
	Packet  *psbt.Packet
	Network network.Type
}

// Hex returns the hex form of the signed packet.
func (s *SignedPsbt) Hex() (string, error) {
	return SerializePsbtHex(s.Packet)
}

// Base64 returns the base64 form of the signed packet.
func (s *SignedPsbt) Base64() (string, error) {
	if s.Packet == nil {
		return "", ErrEmptyPsbt
	}

	return s.Packet.B64Encode()
}
