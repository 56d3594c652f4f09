package models

import "strings"

// Network identifies a supported blockchain network
type Network string

const (
	NetworkBSC  Network = "BSC"
	NetworkETH  Network = "ETH"
	NetworkTRON Network = "TRON"
	NetworkBTC  Network = "BTC"
	NetworkTON  Network = "TON"
)

var supportedNetworks = []Network{NetworkBSC, NetworkETH, NetworkTRON, NetworkBTC, NetworkTON}

// SupportedNetworks returns every network the gateway knows, in display order
func SupportedNetworks() []Network {
	out := make([]Network, len(supportedNetworks))
	copy(out, supportedNetworks)
	return out
}

// SupportedNetworkNames returns the supported networks as a comma separated list
func SupportedNetworkNames() string {
	names := make([]string, len(supportedNetworks))
	for i, n := range supportedNetworks {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}

// ParseNetwork normalizes a user supplied network name.
// The second return value is false when the name is not supported.
func ParseNetwork(name string) (Network, bool) {
	n := Network(strings.ToUpper(strings.TrimSpace(name)))
	for _, s := range supportedNetworks {
		if s == n {
			return n, true
		}
	}
	return n, false
}

// IsEVM reports whether the network speaks the Ethereum JSON-RPC protocol
func (n Network) IsEVM() bool {
	return n == NetworkETH || n == NetworkBSC
}

// NativeSymbol returns the ticker of the network's native coin
func (n Network) NativeSymbol() string {
	switch n {
	case NetworkETH:
		return "ETH"
	case NetworkBSC:
		return "BNB"
	case NetworkTRON:
		return "TRX"
	case NetworkBTC:
		return "BTC"
	case NetworkTON:
		return "TON"
	default:
		return ""
	}
}
