package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/config"
	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/wallet"
)

const mnemonicEnv = "mnemonic"

// chainDataService connects to the chain over the configured transport. Reads are retried.
func (r *runtime) chainDataService(chain *chains.ChainParams) (rpc.ChainDataService, func(), error) {
	var service rpc.ChainDataService
	closer := func() {}

	switch r.cfg.Transport {
	case config.TransportGrpc:
		if chain.GrpcEndpoint == "" {
			return nil, nil, fmt.Errorf("no gRPC endpoint configured for %s", chain.Name)
		}
		client, err := rpc.NewGrpcClient(chain.GrpcEndpoint, chain.AccountPrefix, r.logger)
		if err != nil {
			return nil, nil, err
		}
		service = client
		closer = func() {
			if err := client.Close(); err != nil {
				r.logger.Warn("failed to close gRPC connection", "error", err.Error())
			}
		}
	default:
		if chain.RestEndpoint == "" {
			return nil, nil, fmt.Errorf("no REST endpoint configured for %s", chain.Name)
		}
		service = rpc.NewRestClient(chain.RestEndpoint, chain.AccountPrefix, r.cfg.GetRequestTimeout(), r.logger)
	}

	r.logger.Debug("connected to chain", "chain_id", chain.CosmosChainID, "transport", r.cfg.Transport)
	return rpc.NewRetryableRpcClient(r.cfg.RetryAttempts, r.cfg.GetRetryDelay(), service, r.logger), closer, nil
}

// signer returns the wallet to sign with and the address it signs for. A configured wallet RPC endpoint wins
// over a local mnemonic.
func (r *runtime) signer(ctx context.Context, from, mnemonicFile string) (wallet.Signer, string, func(), error) {
	if r.cfg.WalletRpcUrl != "" {
		if from == "" {
			return nil, "", nil, errors.New("--from is required when signing with a wallet")
		}
		signer, err := wallet.DialRPCSigner(ctx, r.cfg.WalletRpcUrl, r.logger)
		if err != nil {
			return nil, "", nil, err
		}
		return signer, from, signer.Close, nil
	}

	mnemonic, err := r.readMnemonic(mnemonicFile)
	if err != nil {
		return nil, "", nil, err
	}
	signer, err := wallet.NewKeySignerFromMnemonic(mnemonic, r.logger)
	if err != nil {
		return nil, "", nil, err
	}
	if from != "" && !strings.EqualFold(from, signer.Address()) {
		return nil, "", nil, fmt.Errorf("%w: mnemonic is for %s, not %s", wallet.ErrSignerMismatch, signer.Address(), from)
	}
	return signer, signer.Address(), func() {}, nil
}

func (r *runtime) readMnemonic(mnemonicFile string) (string, error) {
	if mnemonicFile != "" {
		expanded, err := config.ExpandHomeDir(mnemonicFile)
		if err != nil {
			return "", err
		}
		contents, err := os.ReadFile(expanded)
		if err != nil {
			return "", fmt.Errorf("reading mnemonic: %w", err)
		}
		return strings.TrimSpace(string(contents)), nil
	}

	if mnemonic := r.viper.GetString(mnemonicEnv); mnemonic != "" {
		return mnemonic, nil
	}
	return "", fmt.Errorf("no signer: set wallet_rpc_url, --mnemonic-file or %s_MNEMONIC", envPrefix)
}
