package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/cosmos/tx"
	"github.com/tessellated-io/haqq-delegator/delegation"
	"github.com/tessellated-io/haqq-delegator/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newDelegateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Delegate ISLM to a validator",
		Long: `Delegate ISLM to a validator.

The amount is in ISLM and the transaction fee is paid out of it, so the validator receives slightly less than
the amount given.`,
		Args: cobra.NoArgs,
		RunE: runDelegate,
	}

	flags := cmd.Flags()
	flags.String("validator", "", "validator operator address (haqqvaloper...)")
	flags.String("amount", "", "amount to delegate in ISLM, ex. 1.5")
	flags.String("from", "", "0x address of the wallet account")
	flags.String("mnemonic-file", "", "file holding the mnemonic to sign with, instead of a wallet")
	flags.String("wallet-rpc-url", "", "JSON-RPC endpoint of a wallet supporting eth_signTypedData_v4")
	flags.String("memo", "", "memo to attach")
	flags.Bool("wait", false, "wait for the transaction to be included in a block")
	flags.String("pushgateway-url", "", "Prometheus Pushgateway to push metrics to")

	return cmd
}

func runDelegate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	validatorAddress, _ := flags.GetString("validator")
	rawAmount, _ := flags.GetString("amount")
	from, _ := flags.GetString("from")
	mnemonicFile, _ := flags.GetString("mnemonic-file")
	wait, _ := flags.GetBool("wait")

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}

	chain, err := rt.cfg.Chain()
	if err != nil {
		return err
	}

	service, closeService, err := rt.chainDataService(chain)
	if err != nil {
		return err
	}
	defer closeService()

	signer, signerAddress, closeSigner, err := rt.signer(ctx, from, mnemonicFile)
	if err != nil {
		return err
	}
	defer closeSigner()

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	defer rt.pushMetrics(registry)

	pipeline, err := delegation.NewPipeline(
		service,
		signer,
		tx.NewBuilder(chain.AccountPrefix, rt.logger),
		rt.logger,
		pipelineMetrics.Observer(chain.CosmosChainID),
	)
	if err != nil {
		return err
	}

	request, err := delegation.NewRequest(chain, signerAddress, delegation.DelegationIntent{
		ValidatorAddress: validatorAddress,
		Amount:           amount,
	}, rt.cfg.Memo)
	if err != nil {
		return err
	}

	attempt, err := pipeline.Delegate(ctx, request)
	pipelineMetrics.ObserveAttempt(chain.CosmosChainID, attempt)
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "delegated %s %s to %s\n", attempt.Amount.Amount, attempt.Amount.Denom, validatorAddress)
	fmt.Fprintf(out, "fee: %s %s (gas %s)\n", attempt.Fee.Amount, attempt.Fee.Denom, attempt.Fee.Gas)
	fmt.Fprintf(out, "tx hash: %s\n", attempt.Result.TxHash)

	if !wait {
		return nil
	}

	result, err := rpc.PollForInclusion(ctx, service, attempt.Result.TxHash, rt.cfg.InclusionAttempts, rt.cfg.GetInclusionDelay(), rt.logger)
	if err != nil {
		return err
	}
	if rejection := result.Rejection(); rejection != nil {
		return fmt.Errorf("included at height %d but failed: %w", result.Height, rejection)
	}
	fmt.Fprintf(out, "included at height %d\n", result.Height)
	return nil
}

// explain adds a hint to errors the user can act on. The chain's own message is kept verbatim.
func explain(err error) error {
	var rejection *rpc.ChainRejection
	switch {
	case errors.As(err, &rejection) && rejection.IsGasRelated():
		return fmt.Errorf("%w (the fee did not cover gas, try again)", err)
	case errors.Is(err, delegation.ErrStaleSequence):
		return fmt.Errorf("%w (the node has not caught up with the last delegation, try again shortly)", err)
	default:
		return err
	}
}

func (r *runtime) pushMetrics(gatherer prometheus.Gatherer) {
	if r.cfg.PushgatewayUrl == "" {
		return
	}

	if err := metrics.Push(context.Background(), r.cfg.PushgatewayUrl, gatherer); err != nil {
		r.logger.Warn("failed to push metrics", "pushgateway_url", r.cfg.PushgatewayUrl, "error", err.Error())
	}
}
