package chains

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID is a supported EVM chain identifier.
type ChainID int64

// ChainIDs is all chain ids supported out of the box.
var ChainIDs = struct {
	Ethereum    ChainID
	Base        ChainID
	Sepolia     ChainID
	BaseSepolia ChainID
	Local       ChainID
}{
	Ethereum:    1,
	Base:        8453,
	Sepolia:     11155111,
	BaseSepolia: 84532,
	Local:       31337,
}

// Chain is the info about a network where transfers can be made.
type Chain struct {
	ID   ChainID
	Name string
	// Token is the USDC contract address of the chain. Local chains have none.
	Token common.Address
}

// Chains is the info of all the known chains.
var Chains = map[ChainID]Chain{
	ChainIDs.Ethereum: {
		ID:    ChainIDs.Ethereum,
		Name:  "ethereum",
		Token: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
	},
	ChainIDs.Base: {
		ID:    ChainIDs.Base,
		Name:  "base",
		Token: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	},
	ChainIDs.Sepolia: {
		ID:    ChainIDs.Sepolia,
		Name:  "sepolia",
		Token: common.HexToAddress("0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"),
	},
	ChainIDs.BaseSepolia: {
		ID:    ChainIDs.BaseSepolia,
		Name:  "base-sepolia",
		Token: common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e"),
	},
	ChainIDs.Local: {
		ID:   ChainIDs.Local,
		Name: "local",
	},
}

// InfuraURLs contains the URLs for supported chains for Infura.
var InfuraURLs = map[ChainID]string{
	ChainIDs.Ethereum:    "https://mainnet.infura.io/v3/%s",
	ChainIDs.Base:        "https://base-mainnet.infura.io/v3/%s",
	ChainIDs.Sepolia:     "https://sepolia.infura.io/v3/%s",
	ChainIDs.BaseSepolia: "https://base-sepolia.infura.io/v3/%s",
}

// AlchemyURLs contains the URLs for supported chains for Alchemy.
var AlchemyURLs = map[ChainID]string{
	ChainIDs.Ethereum:    "https://eth-mainnet.g.alchemy.com/v2/%s",
	ChainIDs.Base:        "https://base-mainnet.g.alchemy.com/v2/%s",
	ChainIDs.Sepolia:     "https://eth-sepolia.g.alchemy.com/v2/%s",
	ChainIDs.BaseSepolia: "https://base-sepolia.g.alchemy.com/v2/%s",
}

// LocalURLs contains the URLs for a local network.
var LocalURLs = map[ChainID]string{
	ChainIDs.Local: "http://localhost:8545",
}

// ByName returns the chain with the given name.
func ByName(name string) (Chain, error) {
	for _, c := range Chains {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	names := make([]string, 0, len(Chains))
	for _, c := range Chains {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return Chain{}, fmt.Errorf("%s is not a valid chain (known chains: %s)", name, strings.Join(names, ", "))
}

// EndpointURL builds the URL of the given provider for the chain.
// Supported providers are infura, alchemy and local.
func EndpointURL(provider string, chainID ChainID, apiKey string) (string, error) {
	var urls map[ChainID]string
	switch strings.ToLower(provider) {
	case "infura":
		urls = InfuraURLs
	case "alchemy":
		urls = AlchemyURLs
	case "local":
		urls = LocalURLs
	default:
		return "", fmt.Errorf("unknown provider %s", provider)
	}
	format, ok := urls[chainID]
	if !ok {
		return "", fmt.Errorf("provider %s doesn't support chain %d", provider, chainID)
	}
	if !strings.Contains(format, "%s") {
		return format, nil
	}
	if apiKey == "" {
		return "", fmt.Errorf("provider %s requires an api key", provider)
	}
	return fmt.Sprintf(format, apiKey), nil
}
