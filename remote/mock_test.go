package remote

import (
	"context"

	"github.com/btcsuite/btcsigner/signer"
	"github.com/stretchr/testify/mock"
)

// mockProvider is a mock implementation of the Provider interface.
type mockProvider struct {
	mock.Mock
}

// A compile time check to ensure mockProvider implements Provider.
var _ Provider = (*mockProvider)(nil)

// GetAccounts implements Provider.
func (m *mockProvider) GetAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// SignMessage implements Provider.
func (m *mockProvider) SignMessage(ctx context.Context, message string,
	scheme signer.MessageSignType) (string, error) {

	args := m.Called(ctx, message, scheme)

	return args.String(0), args.Error(1)
}

// SignPsbt implements Provider.
func (m *mockProvider) SignPsbt(ctx context.Context, psbtHex string,
	opts *signer.PsbtSignOptions) (string, error) {

	args := m.Called(ctx, psbtHex, opts)

	return args.String(0), args.Error(1)
}

// SignPsbts implements Provider.
func (m *mockProvider) SignPsbts(ctx context.Context, psbtHexes []string,
	opts *signer.PsbtSignOptions) ([]string, error) {

	args := m.Called(ctx, psbtHexes, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// GetNetwork implements Provider.
func (m *mockProvider) GetNetwork(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

// offlineProvider is a provider that reports itself unavailable.
type offlineProvider struct {
	mockProvider
}

// Available implements availabler.
func (o *offlineProvider) Available() bool {
	return false
}
