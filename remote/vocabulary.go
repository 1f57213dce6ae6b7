package remote

import (
	"fmt"

	"github.com/btcsuite/btcsigner/network"
)

// providerNetworks maps each network onto the name providers use for it.
var providerNetworks = map[network.Type]string{
	network.Mainnet: "livenet",
	network.Testnet: "testnet",
	network.Regtest: "regtest",
}

// ProviderNetworkName returns the provider's name for net.
func ProviderNetworkName(net network.Type) (string, error) {
	name, ok := providerNetworks[net]
	if !ok {
		return "", fmt.Errorf("%w: %v", network.ErrUnknownNetwork, net)
	}

	return name, nil
}

// ParseProviderNetwork maps a provider network name back to a network.
func ParseProviderNetwork(name string) (network.Type, error) {
	for net, providerName := range providerNetworks {
		if providerName == name {
			return net, nil
		}
	}

	return 0, fmt.Errorf("%w: provider network %q",
		network.ErrUnknownNetwork, name)
}
