// Package networkconfig resolves per-network contract addresses from a
// brownie-style configuration file.
//
// The file maps network names to the addresses the borrow workflow needs:
//
//	default_network: mainnet-fork
//	networks:
//	  mainnet-fork:
//	    rpc_url: http://127.0.0.1:8545
//	    lending_pool_addresses_provider: "0xB53C1a33016B2DC2fF3653530bfF1848a515c8c5"
//	    weth_token: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
//	    dai_token: "0x6B175474E89094C44Da98b954EedeAC495271d0F"
//	    dai_eth_price_feed: "0x773616E4d11A78F511299002da57A0a94577F1f4"
//
// YAML and TOML are both accepted; the format is chosen by file extension.
package networkconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// Format is the encoding of a configuration file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Config keys, as they appear in the file.
const (
	KeyLendingPoolAddressesProvider = "lending_pool_addresses_provider"
	KeyWETHToken                    = "weth_token"
	KeyDAIToken                     = "dai_token"
	KeyDAIETHPriceFeed              = "dai_eth_price_feed"
)

// DefaultLocalEnvironments are the networks where the account is funded
// before the workflow runs.
var DefaultLocalEnvironments = []string{"development", "ganache-local", "mainnet-fork"}

// Registry is the parsed configuration file.
type Registry struct {
	DefaultNetwork    string             `yaml:"default_network" toml:"default_network"`
	LocalEnvironments []string           `yaml:"local_environments" toml:"local_environments"`
	Networks          map[string]Network `yaml:"networks" toml:"networks"`
}

// Network is one entry of the networks map.
type Network struct {
	ChainID                      int64  `yaml:"chain_id" toml:"chain_id"`
	RPCURL                       string `yaml:"rpc_url" toml:"rpc_url"`
	LendingPoolAddressesProvider string `yaml:"lending_pool_addresses_provider" toml:"lending_pool_addresses_provider"`
	WETHToken                    string `yaml:"weth_token" toml:"weth_token"`
	DAIToken                     string `yaml:"dai_token" toml:"dai_token"`
	DAIETHPriceFeed              string `yaml:"dai_eth_price_feed" toml:"dai_eth_price_feed"`
}

// Load reads and parses the file at path.
func Load(path string) (*Registry, error) {
	format, err := formatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network config %s: %w", path, err)
	}
	return Parse(data, format)
}

// Parse decodes configuration data in the given format.
func Parse(data []byte, format Format) (*Registry, error) {
	var reg Registry
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&reg); err != nil {
			return nil, fmt.Errorf("decoding yaml network config: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &reg)
		if err != nil {
			return nil, fmt.Errorf("decoding toml network config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decoding toml network config: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if len(reg.LocalEnvironments) == 0 {
		reg.LocalEnvironments = DefaultLocalEnvironments
	}
	return &reg, nil
}

func formatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// NetworkName returns name, or the configured default when name is empty.
func (r *Registry) NetworkName(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if r.DefaultNetwork == "" {
		return "", &entity.ConfigurationError{Reason: "no network given and no default_network configured"}
	}
	return r.DefaultNetwork, nil
}

// Context builds the network context for name.
func (r *Registry) Context(name string) (*entity.Network, error) {
	if _, ok := r.Networks[name]; !ok {
		return nil, &entity.ConfigurationError{Network: name, Reason: "no registered entry"}
	}
	return entity.NewNetwork(name, r.IsLocal(name))
}

// IsLocal reports whether name is a local or forked test environment.
func (r *Registry) IsLocal(name string) bool {
	return slices.Contains(r.LocalEnvironments, name)
}

// Resolve returns the addresses registered for name. It fails with a
// ConfigurationError when the network is unknown or an address is missing.
func (r *Registry) Resolve(name string) (*entity.NetworkAddresses, error) {
	n, ok := r.Networks[name]
	if !ok {
		return nil, &entity.ConfigurationError{Network: name, Reason: "no registered entry"}
	}

	addrs := &entity.NetworkAddresses{
		Network: name,
		ChainID: n.ChainID,
		RPCURL:  os.ExpandEnv(n.RPCURL),
	}

	fields := []struct {
		key   string
		value string
		dst   *common.Address
	}{
		{KeyLendingPoolAddressesProvider, n.LendingPoolAddressesProvider, &addrs.LendingPoolAddressesProvider},
		{KeyWETHToken, n.WETHToken, &addrs.CollateralToken},
		{KeyDAIToken, n.DAIToken, &addrs.BorrowToken},
		{KeyDAIETHPriceFeed, n.DAIETHPriceFeed, &addrs.PriceFeed},
	}
	for _, f := range fields {
		addr, err := parseAddress(name, f.key, f.value)
		if err != nil {
			return nil, err
		}
		*f.dst = addr
	}

	return addrs, nil
}

func parseAddress(network, key, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, &entity.ConfigurationError{Network: network, Key: key, Reason: "missing"}
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, &entity.ConfigurationError{Network: network, Key: key, Reason: fmt.Sprintf("invalid address %q", value)}
	}
	addr := common.HexToAddress(value)
	if addr == (common.Address{}) {
		return common.Address{}, &entity.ConfigurationError{Network: network, Key: key, Reason: "zero address"}
	}
	return addr, nil
}
