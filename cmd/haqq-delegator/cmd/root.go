package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tessellated-io/haqq-delegator/config"
	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "HAQQ"

// Flags that map onto config keys
var overridableFlags = map[string]string{
	"log_level":       "log-level",
	"chain_id":        "chain-id",
	"transport":       "transport",
	"memo":            "memo",
	"wallet_rpc_url":  "wallet-rpc-url",
	"pushgateway_url": "pushgateway-url",
}

// state shared by subcommands, set up before each run
type runtime struct {
	cfg    *config.Config
	logger *log.Logger
	viper  *viper.Viper
}

var rt = &runtime{}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "haqq-delegator",
		Short: "Delegate ISLM to HAQQ validators",
		Long: `Delegate ISLM to HAQQ validators from an Ethereum style wallet.

Delegations are simulated, priced from the gas used and signed as EIP-712 typed data, either by a wallet
over JSON-RPC or by a local mnemonic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", config.DefaultFile, "path to the config file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Uint64("chain-id", 0, "numeric id of the chain, ex. 11235")
	flags.String("transport", "", "node transport: rest or grpc")

	rootCmd.AddCommand(
		newChainsCmd(),
		newAddressCmd(),
		newValidatorsCmd(),
		newDelegateCmd(),
		newInitCmd(),
	)

	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (r *runtime) setup(cmd *cobra.Command) error {
	r.viper = viper.New()
	r.viper.SetEnvPrefix(envPrefix)
	r.viper.AutomaticEnv()

	for key, flagName := range overridableFlags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			continue
		}
		if err := r.viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg, r.viper)
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.cfg = cfg
	r.logger = log.NewLogger(cfg.LogLevel)
	return nil
}

// loadConfig falls back to defaults when there is no config file.
func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile, log.Discard())
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// applyOverrides lets flags and HAQQ_* environment variables win over the config file.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("chain_id") {
		cfg.ChainID = v.GetUint64("chain_id")
	}
	if v.IsSet("transport") {
		cfg.Transport = strings.ToLower(v.GetString("transport"))
	}
	if v.IsSet("memo") {
		cfg.Memo = v.GetString("memo")
	}
	if v.IsSet("wallet_rpc_url") {
		cfg.WalletRpcUrl = v.GetString("wallet_rpc_url")
	}
	if v.IsSet("pushgateway_url") {
		cfg.PushgatewayUrl = v.GetString("pushgateway_url")
	}
	if v.IsSet("retry_attempts") {
		cfg.RetryAttempts = v.GetUint("retry_attempts")
	}
}
