package chains

// ChainParams identifies one target chain. Values are immutable once registered.
type ChainParams struct {
	ID            uint64 `yaml:"id"`
	CosmosChainID string `yaml:"cosmos_chain_id"`
	Name          string `yaml:"name"`
	Network       string `yaml:"network"`

	RestEndpoint string `yaml:"rest_endpoint"`
	GrpcEndpoint string `yaml:"grpc_endpoint,omitempty"`

	// Fixed for HAQQ. Transactions are built in aISLM at 18 decimals and the sdk bech32 config is set once
	// per process, so these are not configurable.
	AccountPrefix string `yaml:"-"`
	Denom         string `yaml:"-"`
	Decimals      int    `yaml:"-"`
}

// CosmosChain is the subset of chain parameters needed to build transactions.
type CosmosChain struct {
	ChainID       uint64
	CosmosChainID string
}

// ToCosmosChain projects chain parameters into the descriptor used by the transaction builder.
func ToCosmosChain(params *ChainParams) CosmosChain {
	return CosmosChain{
		ChainID:       params.ID,
		CosmosChainID: params.CosmosChainID,
	}
}
