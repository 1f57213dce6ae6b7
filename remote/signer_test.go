package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcsigner/network"
	"github.com/btcsuite/btcsigner/signer"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("user rejected the request")

// codedErr is a provider error carrying a numeric code.
type codedErr struct {
	msg  string
	code int
}

func (e *codedErr) Error() string { return e.msg }

func (e *codedErr) ErrorCode() int { return e.code }

// testPsbtHex returns the hex of a minimal unsigned PSBT.
func testPsbtHex(t *testing.T, value int64) string {
	t.Helper()

	packet, err := psbt.New(
		[]*wire.OutPoint{{Index: 1}},
		[]*wire.TxOut{wire.NewTxOut(value, []byte{txscript.OP_TRUE})},
		2, 0, []uint32{wire.MaxTxInSequenceNum},
	)
	require.NoError(t, err)

	s, err := signer.SerializePsbtHex(packet)
	require.NoError(t, err)

	return s
}

// newTestSigner returns a remote signer around a fresh mock provider.
func newTestSigner(t *testing.T) (*Signer, *mockProvider) {
	t.Helper()

	provider := &mockProvider{}
	t.Cleanup(func() {
		provider.AssertExpectations(t)
	})

	s, err := New(provider)
	require.NoError(t, err)

	return s, provider
}

// TestNewUnavailable checks that construction fails without a usable
// provider.
func TestNewUnavailable(t *testing.T) {
	t.Parallel()

	require.False(t, IsAvailable(nil))

	_, err := New(nil)
	require.ErrorIs(t, err, ErrProviderUnavailable)

	offline := &offlineProvider{}
	require.False(t, IsAvailable(offline))

	_, err = New(offline)
	require.ErrorIs(t, err, ErrProviderUnavailable)

	// No provider method was called.
	offline.AssertNotCalled(t, "GetAccounts", mock.Anything)

	require.True(t, IsAvailable(&mockProvider{}))
}

// TestSyncAccessors checks that the synchronous accessors always fail
// without touching the provider.
func TestSyncAccessors(t *testing.T) {
	t.Parallel()

	s, _ := newTestSigner(t)

	_, err := s.Address().Unpack()
	require.ErrorIs(t, err, ErrSyncAccessUnsupported)

	_, err = s.PublicKey().Unpack()
	require.ErrorIs(t, err, ErrSyncAccessUnsupported)

	_, err = s.NetworkType().Unpack()
	require.ErrorIs(t, err, ErrSyncAccessUnsupported)
}

// TestAccounts checks the account list results.
func TestAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	testCases := []struct {
		name      string
		accounts  []string
		err       error
		expectErr error
	}{{
		name:     "connected",
		accounts: []string{"bc1qexample"},
	}, {
		name:      "empty",
		accounts:  []string{},
		expectErr: ErrNoAccounts,
	}, {
		name:      "nil",
		accounts:  nil,
		expectErr: ErrNoAccounts,
	}, {
		name:      "rejected",
		err:       errRejected,
		expectErr: ErrProviderOperation,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: The provider returns the case's accounts.
			s, provider := newTestSigner(t)
			var accounts any
			if tc.accounts != nil {
				accounts = tc.accounts
			}
			provider.On("GetAccounts", ctx).Return(accounts, tc.err)

			// Act: Ask for the accounts.
			result, err := s.Accounts(ctx)

			// Assert: Either the accounts or an error of the
			// expected kind.
			if tc.expectErr != nil {
				require.ErrorIs(t, err, tc.expectErr)

				var remoteErr *Error
				require.ErrorAs(t, err, &remoteErr)
				require.Equal(t, opGetAccounts, remoteErr.Op)
				require.NotErrorIs(t, err, errRejected)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.accounts, result)
		})
	}
}

// TestErrorCode checks that provider codes and messages are kept.
func TestErrorCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, provider := newTestSigner(t)

	providerErr := &codedErr{msg: "User rejected the request.", code: 4001}
	provider.On("SignMessage", ctx, "hi", signer.MessageECDSA).
		Return("", providerErr)

	_, err := s.SignMessage(ctx, "hi", "")
	require.ErrorIs(t, err, ErrProviderOperation)

	var remoteErr *Error
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, opSignMessage, remoteErr.Op)
	require.Equal(t, providerErr.msg, remoteErr.Message)
	require.Equal(t, fn.Some(4001), remoteErr.Code)
	require.Contains(t, err.Error(), "code 4001")

	// The provider's own error value does not escape.
	var coded *codedErr
	require.False(t, errors.As(err, &coded))
}

// TestSignMessage checks that the scheme is forwarded.
func TestSignMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, provider := newTestSigner(t)

	provider.On("SignMessage", ctx, "hi", signer.MessageBIP322Simple).
		Return("c2ln", nil)

	sig, err := s.SignMessage(ctx, "hi", signer.MessageBIP322Simple)
	require.NoError(t, err)
	require.Equal(t, "c2ln", sig)
}

// TestSignPsbt checks that both PSBT forms are sent as hex and the result
// is tagged with the provider's network.
func TestSignPsbt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	unsigned := testPsbtHex(t, 1_000)
	signedHex := testPsbtHex(t, 2_000)

	packet, err := signer.ParsePsbtHex(unsigned)
	require.NoError(t, err)

	inputs := map[string]signer.Psbt{
		"hex":    signer.PsbtHex(unsigned),
		"packet": signer.PsbtPacket(packet),
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, provider := newTestSigner(t)
			opts := &signer.PsbtSignOptions{
				AutoFinalized: fn.Some(false),
			}

			provider.On("SignPsbt", ctx, unsigned, opts).
				Return(signedHex, nil).Once()
			provider.On("GetNetwork", ctx).Return("livenet", nil).Once()

			signed, err := s.SignPsbt(ctx, input, opts)
			require.NoError(t, err)
			require.Equal(t, network.Mainnet, signed.Network)

			result, err := signed.Hex()
			require.NoError(t, err)
			require.Equal(t, signedHex, result)
		})
	}
}

// TestSignPsbtErrors checks the failures of a single PSBT request.
func TestSignPsbtErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	unsigned := testPsbtHex(t, 1_000)

	t.Run("rejected", func(t *testing.T) {
		t.Parallel()

		s, provider := newTestSigner(t)
		provider.On("SignPsbt", ctx, unsigned, mock.Anything).
			Return("", errRejected)

		_, err := s.SignPsbt(ctx, signer.PsbtHex(unsigned), nil)
		require.ErrorIs(t, err, ErrProviderOperation)
	})

	t.Run("unknown network", func(t *testing.T) {
		t.Parallel()

		s, provider := newTestSigner(t)
		provider.On("SignPsbt", ctx, unsigned, mock.Anything).
			Return(unsigned, nil)
		provider.On("GetNetwork", ctx).Return("signet", nil)

		_, err := s.SignPsbt(ctx, signer.PsbtHex(unsigned), nil)
		require.ErrorIs(t, err, ErrProviderOperation)
		require.Contains(t, err.Error(), "signet")
	})

	t.Run("bad result", func(t *testing.T) {
		t.Parallel()

		s, provider := newTestSigner(t)
		provider.On("SignPsbt", ctx, unsigned, mock.Anything).
			Return("zz", nil)
		provider.On("GetNetwork", ctx).Return("testnet", nil)

		_, err := s.SignPsbt(ctx, signer.PsbtHex(unsigned), nil)
		require.ErrorIs(t, err, ErrProviderOperation)
	})

	t.Run("empty psbt", func(t *testing.T) {
		t.Parallel()

		s, _ := newTestSigner(t)

		_, err := s.SignPsbt(ctx, signer.Psbt{}, nil)
		require.ErrorIs(t, err, ErrProviderOperation)
	})
}

// TestSignPsbts checks that a batch is sent in one call and returned in
// order.
func TestSignPsbts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inputs := []string{testPsbtHex(t, 1), testPsbtHex(t, 2)}
	outputs := []string{testPsbtHex(t, 3), testPsbtHex(t, 4)}

	s, provider := newTestSigner(t)
	provider.On("SignPsbts", ctx, inputs, (*signer.PsbtSignOptions)(nil)).
		Return(outputs, nil).Once()
	provider.On("GetNetwork", ctx).Return("regtest", nil).Once()

	signed, err := s.SignPsbts(ctx, []signer.Psbt{
		signer.PsbtHex(inputs[0]), signer.PsbtHex(inputs[1]),
	}, nil)
	require.NoError(t, err)
	require.Len(t, signed, 2)

	for i, result := range signed {
		require.Equal(t, network.Regtest, result.Network)

		resultHex, err := result.Hex()
		require.NoError(t, err)
		require.Equal(t, outputs[i], resultHex)
	}
}

// TestSignPsbtsLengthMismatch checks that a short provider batch is
// rejected.
func TestSignPsbtsLengthMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inputs := []string{testPsbtHex(t, 1), testPsbtHex(t, 2)}

	s, provider := newTestSigner(t)
	provider.On("SignPsbts", ctx, inputs, mock.Anything).
		Return([]string{inputs[0]}, nil)

	signed, err := s.SignPsbts(ctx, []signer.Psbt{
		signer.PsbtHex(inputs[0]), signer.PsbtHex(inputs[1]),
	}, nil)
	require.ErrorIs(t, err, ErrProviderOperation)
	require.Nil(t, signed)
}

// TestNetworkVocabulary checks that the table is total and maps both ways.
func TestNetworkVocabulary(t *testing.T) {
	t.Parallel()

	expected := map[network.Type]string{
		network.Mainnet: "livenet",
		network.Testnet: "testnet",
		network.Regtest: "regtest",
	}

	for _, net := range network.Types {
		name, err := ProviderNetworkName(net)
		require.NoError(t, err)
		require.Equal(t, expected[net], name)

		parsed, err := ParseProviderNetwork(name)
		require.NoError(t, err)
		require.Equal(t, net, parsed)
	}

	_, err := ParseProviderNetwork("mainnet")
	require.ErrorIs(t, err, network.ErrUnknownNetwork)

	_, err = ProviderNetworkName(network.Type(9))
	require.ErrorIs(t, err, network.ErrUnknownNetwork)
}
