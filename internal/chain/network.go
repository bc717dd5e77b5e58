package chain

import (
	"fmt"
	"strings"
)

const (
	Mainnet = "mainnet"
	Sepolia = "sepolia"
)

var fallbackURLs = map[string]string{
	Mainnet: "https://cloudflare-eth.com",
	Sepolia: "https://rpc.sepolia.org",
}

// Endpoints holds the primary and fallback JSON-RPC URLs for a chain.
type Endpoints struct {
	Primary  string
	Fallback string
}

// NormalizeName lowercases and validates a chain name.
func NormalizeName(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case Mainnet, Sepolia:
		return name, nil
	case "":
		return Sepolia, nil
	default:
		return "", fmt.Errorf("unsupported chain: %s", name)
	}
}

// ResolveEndpoints derives the provider-keyed primary URL and the public fallback URL.
// Non-empty overrides win.
func ResolveEndpoints(chainName, infuraKey, primaryOverride, fallbackOverride string) (Endpoints, error) {
	name, err := NormalizeName(chainName)
	if err != nil {
		return Endpoints{}, err
	}

	eps := Endpoints{
		Primary:  strings.TrimSpace(primaryOverride),
		Fallback: strings.TrimSpace(fallbackOverride),
	}
	if eps.Primary == "" {
		if strings.TrimSpace(infuraKey) == "" {
			return Endpoints{}, fmt.Errorf("infura key or primary rpc url is required")
		}
		eps.Primary = fmt.Sprintf("https://%s.infura.io/v3/%s", name, strings.TrimSpace(infuraKey))
	}
	if eps.Fallback == "" {
		eps.Fallback = fallbackURLs[name]
	}
	return eps, nil
}

// DisplayName is the human label shown next to the donation widget.
func DisplayName(chainName string) string {
	if chainName == Mainnet {
		return "Ethereum"
	}
	return "Sepolia"
}

func explorerBase(chainName string) string {
	if chainName == Mainnet {
		return "https://etherscan.io"
	}
	return "https://sepolia.etherscan.io"
}

// AddressURL links to an address on the chain's block explorer.
func AddressURL(chainName, address string) string {
	return explorerBase(chainName) + "/address/" + address
}

// TxURL links to a transaction on the chain's block explorer.
func TxURL(chainName, txHash string) string {
	return explorerBase(chainName) + "/tx/" + txHash
}
