package chains

import (
	"errors"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

const (
	HaqqAccountPrefix = "haqq"
	HaqqDenom         = "aISLM"
	HaqqDecimals      = 18
)

var (
	ErrUnknownChain       = errors.New("unknown chain")
	ErrInvalidChainParams = errors.New("invalid chain params")
)

// Registry provides static chain data, keyed by numeric (EIP-155) chain id.
type Registry struct {
	chains map[uint64]ChainParams
}

// NewRegistry returns a registry holding the HAQQ networks.
func NewRegistry() *Registry {
	registry := &Registry{
		chains: make(map[uint64]ChainParams),
	}

	registry.addToRegistry(121799, "haqq_121799-1", "HAQQ Localnet", "haqq-localnet", "http://127.0.0.1:1317", "127.0.0.1:9090")
	registry.addToRegistry(54211, "haqq_54211-3", "HAQQ Testedge 2", "haqq-testedge-2", "https://rest.cosmos.testedge2.haqq.network", "")
	registry.addToRegistry(11235, "haqq_11235-1", "HAQQ Mainnet", "haqq-mainnet", "https://rest.cosmos.haqq.network", "")

	return registry
}

// NewRegistryFromParams builds a registry from explicit chain parameters, ex. from a config file.
func NewRegistryFromParams(params []ChainParams) (*Registry, error) {
	registry := &Registry{
		chains: make(map[uint64]ChainParams),
	}

	for _, p := range params {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, exists := registry.chains[p.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate chain id %d", ErrInvalidChainParams, p.ID)
		}
		registry.chains[p.ID] = withDefaults(p)
	}

	return registry, nil
}

// Lookup returns the parameters for a chain id. There is no fallback chain.
func (r *Registry) Lookup(chainID uint64) (*ChainParams, error) {
	params, found := r.chains[chainID]
	if !found {
		return nil, fmt.Errorf("%w: no configuration for %d", ErrUnknownChain, chainID)
	}

	return &params, nil
}

// Chains returns all supported chains, ordered by chain id.
func (r *Registry) Chains() []ChainParams {
	chains := lo.Values(r.chains)
	sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })
	return chains
}

func (r *Registry) addToRegistry(
	chainID uint64,
	cosmosChainID string,
	name string,
	network string,
	restEndpoint string,
	grpcEndpoint string,
) {
	r.chains[chainID] = ChainParams{
		ID:            chainID,
		CosmosChainID: cosmosChainID,
		Name:          name,
		Network:       network,

		RestEndpoint: restEndpoint,
		GrpcEndpoint: grpcEndpoint,

		AccountPrefix: HaqqAccountPrefix,
		Denom:         HaqqDenom,
		Decimals:      HaqqDecimals,
	}
}

func validate(p ChainParams) error {
	switch {
	case p.ID == 0:
		return fmt.Errorf("%w: missing chain id", ErrInvalidChainParams)
	case p.CosmosChainID == "":
		return fmt.Errorf("%w: missing cosmos chain id for %d", ErrInvalidChainParams, p.ID)
	case p.RestEndpoint == "" && p.GrpcEndpoint == "":
		return fmt.Errorf("%w: no endpoints for %d", ErrInvalidChainParams, p.ID)
	case p.AccountPrefix != "" && p.AccountPrefix != HaqqAccountPrefix:
		return fmt.Errorf("%w: account prefix %q for %d, only %q is supported", ErrInvalidChainParams, p.AccountPrefix, p.ID, HaqqAccountPrefix)
	case p.Denom != "" && p.Denom != HaqqDenom:
		return fmt.Errorf("%w: denom %q for %d, only %q is supported", ErrInvalidChainParams, p.Denom, p.ID, HaqqDenom)
	case p.Decimals != 0 && p.Decimals != HaqqDecimals:
		return fmt.Errorf("%w: %d decimals for %d, only %d is supported", ErrInvalidChainParams, p.Decimals, p.ID, HaqqDecimals)
	}
	return nil
}

func withDefaults(p ChainParams) ChainParams {
	if p.AccountPrefix == "" {
		p.AccountPrefix = HaqqAccountPrefix
	}
	if p.Denom == "" {
		p.Denom = HaqqDenom
	}
	if p.Decimals == 0 {
		p.Decimals = HaqqDecimals
	}
	if p.Name == "" {
		p.Name = p.CosmosChainID
	}
	return p
}
