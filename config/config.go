package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/log"

	"gopkg.in/yaml.v2"
)

const (
	DefaultDirectory = "~/.haqq-delegator"
	DefaultFile      = DefaultDirectory + "/config.yaml"

	TransportRest = "rest"
	TransportGrpc = "grpc"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrInvalidConfig  = errors.New("invalid config")
)

// Config is the on disk configuration. Durations are strings, ex. "2s".
type Config struct {
	LogLevel string `yaml:"log_level" comment:"Log level: debug, info, warn or error"`
	ChainID  uint64 `yaml:"chain_id" comment:"Numeric (EIP-155) id of the chain to delegate on, ex. 11235 for HAQQ mainnet"`

	Transport      string `yaml:"transport" comment:"How to talk to the node: rest or grpc"`
	RequestTimeout string `yaml:"request_timeout" comment:"Timeout for a single REST request"`
	RetryAttempts  uint   `yaml:"retry_attempts" comment:"Number of attempts for chain queries. Broadcasts are never retried"`
	RetryDelay     string `yaml:"retry_delay" comment:"Delay between query attempts"`

	InclusionAttempts uint   `yaml:"inclusion_attempts" comment:"Number of times to look for a broadcast transaction when waiting for inclusion"`
	InclusionDelay    string `yaml:"inclusion_delay" comment:"Delay between inclusion checks"`

	Memo           string `yaml:"memo" comment:"Memo attached to delegations"`
	WalletRpcUrl   string `yaml:"wallet_rpc_url" comment:"JSON-RPC endpoint of a wallet that supports eth_signTypedData_v4. Leave empty to sign with a local mnemonic"`
	PushgatewayUrl string `yaml:"pushgateway_url" comment:"Prometheus Pushgateway to send metrics to after each run. Leave empty to disable"`

	Chains []chains.ChainParams `yaml:"chains,omitempty" comment:"Replaces the built in HAQQ networks when set"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		ChainID:  11235,

		Transport:      TransportRest,
		RequestTimeout: "30s",
		RetryAttempts:  3,
		RetryDelay:     "2s",

		InclusionAttempts: 20,
		InclusionDelay:    "3s",

		Memo: "Delegate",
	}
}

// Load reads a config file on top of the defaults.
func Load(configFile string, logger *log.Logger) (*Config, error) {
	expanded, err := ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	// Strict, so unsupported keys such as a chain denom fail instead of being dropped
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("loaded config", "file", expanded, "chain_id", config.ChainID, "transport", config.Transport)
	return config, nil
}

// Init writes a commented default config file, leaving an existing one alone.
func Init(configFile string, logger *log.Logger) error {
	return WriteYamlWithComments(DefaultConfig(), "haqq-delegator configuration", configFile, logger)
}

func (c *Config) Validate() error {
	var errs []error

	if !log.IsValidLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.ChainID == 0 {
		errs = append(errs, errors.New("missing chain id"))
	}
	if c.Transport != TransportRest && c.Transport != TransportGrpc {
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}
	for name, raw := range map[string]string{
		"request_timeout": c.RequestTimeout,
		"retry_delay":     c.RetryDelay,
		"inclusion_delay": c.InclusionDelay,
	} {
		if _, err := parseDuration(raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Registry returns the configured chains, or the built in HAQQ networks.
func (c *Config) Registry() (*chains.Registry, error) {
	if len(c.Chains) == 0 {
		return chains.NewRegistry(), nil
	}
	return chains.NewRegistryFromParams(c.Chains)
}

// Chain looks up the configured chain.
func (c *Config) Chain() (*chains.ChainParams, error) {
	registry, err := c.Registry()
	if err != nil {
		return nil, err
	}
	return registry.Lookup(c.ChainID)
}

func (c *Config) GetRequestTimeout() time.Duration {
	return durationOrZero(c.RequestTimeout)
}

func (c *Config) GetRetryDelay() time.Duration {
	return durationOrZero(c.RetryDelay)
}

func (c *Config) GetInclusionDelay() time.Duration {
	return durationOrZero(c.InclusionDelay)
}

// Empty durations are zero.
func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return duration, nil
}

// Only used after Validate
func durationOrZero(raw string) time.Duration {
	duration, err := parseDuration(raw)
	if err != nil {
		return 0
	}
	return duration
}
