package signer

import (
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcsigner/keychain"
	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex = "0c28fca386c7a227600b2fe50b7cae11ec86d3bf1fbe471be89827e19" +
		"d72aa1d"

	testMnemonic = "abandon abandon abandon abandon abandon abandon " +
		"abandon abandon abandon abandon abandon about"
)

// fundedPsbt returns a packet with one input spending an output that pays
// to pkScript.
func fundedPsbt(t *testing.T, pkScript []byte) *psbt.Packet {
	t.Helper()

	prevTx := wire.NewMsgTx(2)
	prevTx.AddTxIn(&wire.TxIn{})
	prevTx.AddTxOut(wire.NewTxOut(100_000, pkScript))
	prevHash := prevTx.TxHash()

	packet, err := psbt.New(
		[]*wire.OutPoint{wire.NewOutPoint(&prevHash, 0)},
		[]*wire.TxOut{wire.NewTxOut(90_000, []byte{txscript.OP_TRUE})},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)

	packet.Inputs[0].WitnessUtxo = prevTx.TxOut[0]

	return packet
}

// fundedPsbtHex is fundedPsbt in hex form.
func fundedPsbtHex(t *testing.T, pkScript []byte) string {
	t.Helper()

	s, err := SerializePsbtHex(fundedPsbt(t, pkScript))
	require.NoError(t, err)

	return s
}

// TestFactoryAddressType checks that every strategy of every factory yields
// a signer of the factory's address type.
func TestFactoryAddressType(t *testing.T) {
	t.Parallel()

	factories := []Factory{P2WPKH, P2TR, P2SHP2WPKH, P2PKH}
	params := []Params{{
		Strategy: StrategyRandom,
		Network:  network.Testnet,
	}, {
		Strategy:   StrategyPrivateKey,
		Network:    network.Testnet,
		PrivateKey: testKeyHex,
	}, {
		Strategy: StrategyMnemonic,
		Network:  network.Testnet,
		Mnemonic: keychain.MnemonicParams{Mnemonic: testMnemonic},
	}}

	for _, f := range factories {
		for _, p := range params {
			name := f.AddressType.String() + "/" + p.Strategy.String()
			t.Run(name, func(t *testing.T) {
				t.Parallel()

				s, err := f.New(p)
				require.NoError(t, err)
				require.Equal(t, f.AddressType, s.AddressType())
				require.Equal(t, f.AddressType,
					s.Wallet().AddressType())

				net, err := s.NetworkType().Unpack()
				require.NoError(t, err)
				require.Equal(t, network.Testnet, net)
			})
		}
	}
}

// TestFactoryZeroValues checks that neither an empty factory nor empty
// params fall back to a default.
func TestFactoryZeroValues(t *testing.T) {
	t.Parallel()

	_, err := Factory{}.FromRandom(network.Regtest)
	require.ErrorIs(t, err, wallet.ErrUnknownAddrType)

	_, err = P2WPKH.New(Params{Network: network.Regtest})
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

// TestNewLocalSignerMismatch checks that a signer rejects a wallet of any
// other address type.
func TestNewLocalSignerMismatch(t *testing.T) {
	t.Parallel()

	for _, walletType := range wallet.AddressTypes {
		w, err := wallet.FromRandom(walletType, network.Regtest)
		require.NoError(t, err)

		_, err = NewP2WPKHSigner(w)
		if walletType == wallet.P2WPKH {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrAddressTypeMismatch)
		}

		_, err = NewP2TRSigner(w)
		if walletType == wallet.P2TR {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrAddressTypeMismatch)
		}
	}

	_, err := NewP2TRSigner(nil)
	require.ErrorIs(t, err, ErrNilWallet)
}

// TestFromPrivateKeyFormats checks that the hex path decodes two characters
// per byte and that other lengths are parsed as WIF.
func TestFromPrivateKeyFormats(t *testing.T) {
	t.Parallel()

	expected := make([]byte, 32)
	for i := range expected {
		b, err := strconv.ParseUint(testKeyHex[i*2:i*2+2], 16, 8)
		require.NoError(t, err)
		expected[i] = byte(b)
	}

	fromHex, err := P2WPKH.FromPrivateKey(testKeyHex, network.Mainnet)
	require.NoError(t, err)

	wif, err := fromHex.Wallet().PrivateKeyWIF()
	require.NoError(t, err)

	decoded, err := keychain.DecodeWIF(wif, network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, expected, decoded.Serialize())

	fromWIF, err := P2WPKH.FromPrivateKey(wif, network.Mainnet)
	require.NoError(t, err)
	require.Equal(t, fromHex.Address(), fromWIF.Address())

	// 64 characters that are not hex are not retried as WIF.
	bad := "zz" + testKeyHex[2:]
	_, err = P2WPKH.FromPrivateKey(bad, network.Mainnet)
	require.ErrorIs(t, err, keychain.ErrInvalidHexKey)

	// A short hex string is treated as WIF and fails to decode.
	_, err = P2WPKH.FromPrivateKey(testKeyHex[:62], network.Mainnet)
	require.Error(t, err)

	// The zero key is rejected by every factory.
	zero := strings.Repeat("0", keychain.HexKeyLen)
	for _, f := range []Factory{P2PKH, P2WPKH, P2SHP2WPKH, P2TR} {
		_, err = f.FromPrivateKey(zero, network.Testnet)
		require.ErrorIs(t, err, keychain.ErrKeyOutOfRange)
	}
}

// TestTaprootMessageHexAndWIF signs the same message with a taproot signer
// built from a hex key and from the WIF of the same key.
func TestTaprootMessageHexAndWIF(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Arrange: Build a signer from the hex key on testnet.
	fromHex, err := P2TR.FromPrivateKey(testKeyHex, network.Testnet)
	require.NoError(t, err)

	sigHex, err := fromHex.SignMessage(ctx, "hello", MessageECDSA)
	require.NoError(t, err)
	require.NotEmpty(t, sigHex)

	// Act: Build a second signer from the WIF form of the key.
	privKey, err := keychain.ParsePrivateKey(testKeyHex, network.Testnet)
	require.NoError(t, err)

	wif, err := keychain.EncodeWIF(privKey, network.Testnet)
	require.NoError(t, err)

	fromWIF, err := P2TR.FromPrivateKey(wif, network.Testnet)
	require.NoError(t, err)

	sigWIF, err := fromWIF.SignMessage(ctx, "hello", MessageECDSA)
	require.NoError(t, err)

	// Assert: Both keys produce the same signature, which verifies.
	require.Equal(t, sigHex, sigWIF)

	addr, err := fromHex.Address().Unpack()
	require.NoError(t, err)
	require.NoError(t, wallet.VerifyMessage(
		addr, network.Testnet, "hello", sigHex, MessageECDSA,
	))
}

// TestSignPsbtHexAndPacket checks that the hex and packet forms of the same
// PSBT sign to equal results.
func TestSignPsbtHexAndPacket(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	for _, f := range []Factory{P2WPKH, P2TR} {
		t.Run(f.AddressType.String(), func(t *testing.T) {
			t.Parallel()

			s, err := f.FromRandom(network.Regtest)
			require.NoError(t, err)

			psbtHex := fundedPsbtHex(t, s.Wallet().PkScript())
			packet, err := ParsePsbtHex(psbtHex)
			require.NoError(t, err)

			fromHex, err := s.SignPsbt(ctx, PsbtHex(psbtHex), nil)
			require.NoError(t, err)

			fromPacket, err := s.SignPsbt(
				ctx, PsbtPacket(packet), nil,
			)
			require.NoError(t, err)

			require.Equal(t, network.Regtest, fromHex.Network)
			require.Equal(t, fromHex.Network, fromPacket.Network)

			hexA, err := fromHex.Hex()
			require.NoError(t, err)
			hexB, err := fromPacket.Hex()
			require.NoError(t, err)
			require.Equal(t, hexA, hexB)
		})
	}
}

// TestSignPsbtDefaultOptions checks that nil options finalize like an
// explicit AutoFinalized true, and that false leaves inputs partial.
func TestSignPsbtDefaultOptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := P2WPKH.FromRandom(network.Regtest)
	require.NoError(t, err)

	psbtHex := fundedPsbtHex(t, s.Wallet().PkScript())

	testCases := []struct {
		name      string
		opts      *PsbtSignOptions
		finalized bool
	}{{
		name:      "nil options",
		opts:      nil,
		finalized: true,
	}, {
		name:      "empty options",
		opts:      &PsbtSignOptions{},
		finalized: true,
	}, {
		name: "explicit true",
		opts: &PsbtSignOptions{
			AutoFinalized: fn.Some(true),
		},
		finalized: true,
	}, {
		name: "explicit false",
		opts: &PsbtSignOptions{
			AutoFinalized: fn.Some(false),
		},
		finalized: false,
	}}

	var finalHex string
	for _, tc := range testCases {
		signed, err := s.SignPsbt(ctx, PsbtHex(psbtHex), tc.opts)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.finalized, signed.Packet.IsComplete(),
			tc.name)

		if !tc.finalized {
			continue
		}

		// Every finalizing variant yields the same packet.
		signedHex, err := signed.Hex()
		require.NoError(t, err)
		if finalHex == "" {
			finalHex = signedHex
		}
		require.Equal(t, finalHex, signedHex, tc.name)
	}
}

// TestSignPsbtsOrder checks that a batch returns per-element results in
// input order and that a failure returns no results.
func TestSignPsbtsOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := P2WPKH.FromRandom(network.Regtest)
	require.NoError(t, err)

	pkScript := s.Wallet().PkScript()
	inputs := []string{
		fundedPsbtHex(t, pkScript),
		fundedPsbtHex(t, pkScript),
		fundedPsbtHex(t, pkScript),
	}

	// Make each PSBT distinct by changing its output value.
	batch := make([]Psbt, len(inputs))
	for i := range inputs {
		packet, err := ParsePsbtHex(inputs[i])
		require.NoError(t, err)
		packet.UnsignedTx.TxOut[0].Value = int64(1_000 * (i + 1))

		inputs[i], err = SerializePsbtHex(packet)
		require.NoError(t, err)
		batch[i] = PsbtHex(inputs[i])
	}

	results, err := s.SignPsbts(ctx, batch, nil)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))

	for i := range inputs {
		single, err := s.SignPsbt(ctx, PsbtHex(inputs[i]), nil)
		require.NoError(t, err)

		expected, err := single.Hex()
		require.NoError(t, err)
		actual, err := results[i].Hex()
		require.NoError(t, err)
		require.Equal(t, expected, actual, "psbt %d", i)
	}

	// A bad element aborts the batch.
	batch[1] = PsbtHex("not hex")
	results, err = s.SignPsbts(ctx, batch, nil)
	require.Error(t, err)
	require.Nil(t, results)

	// A cancelled context stops before the first element.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.SignPsbts(cancelled, batch[:1], nil)
	require.ErrorIs(t, err, context.Canceled)
}

// TestPsbtValue checks the conversions of the PSBT value.
func TestPsbtValue(t *testing.T) {
	t.Parallel()

	packet := fundedPsbt(t, []byte{txscript.OP_TRUE})
	packetHex, err := SerializePsbtHex(packet)
	require.NoError(t, err)

	fromHex := PsbtHex(packetHex)
	require.True(t, fromHex.IsHex())

	parsed, err := fromHex.Packet()
	require.NoError(t, err)
	require.Equal(t, packet.UnsignedTx.TxHash(), parsed.UnsignedTx.TxHash())

	fromPacket := PsbtPacket(packet)
	require.False(t, fromPacket.IsHex())

	encoded, err := fromPacket.Hex()
	require.NoError(t, err)
	require.Equal(t, packetHex, encoded)

	_, err = Psbt{}.Packet()
	require.ErrorIs(t, err, ErrEmptyPsbt)

	_, err = Psbt{}.Hex()
	require.ErrorIs(t, err, ErrEmptyPsbt)

	_, err = PsbtHex(hex.EncodeToString([]byte("psbt"))).Packet()
	require.Error(t, err)
}
