package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/tessellated-io/haqq-delegator/log"

	retry "github.com/avast/retry-go/v4"
)

// Implements retryable reads and returns the last error. Simulations and broadcasts are never retried: a retried
// broadcast could submit a transaction the node already accepted, and simulation failures belong to the caller.
type retryableRpcClient struct {
	wrappedClient ChainDataService

	attempts retry.Option
	delay    retry.Option

	logger *log.Logger
}

// Ensure that retryableRpcClient implements ChainDataService
var _ ChainDataService = (*retryableRpcClient)(nil)

// NewRetryableRpcClient returns a new retryableRpcClient
func NewRetryableRpcClient(attempts uint, delay time.Duration, rpcClient ChainDataService, logger *log.Logger) ChainDataService {
	// Zero attempts means retry forever to retry-go
	if attempts == 0 {
		attempts = 1
	}
	if logger == nil {
		logger = log.Default()
	}

	return &retryableRpcClient{
		wrappedClient: rpcClient,

		attempts: retry.Attempts(attempts),
		delay:    retry.Delay(delay),

		logger: logger,
	}
}

// Errors that will not change on retry
func isRetryable(err error) bool {
	return !errors.Is(err, ErrAccountNotFound) &&
		!errors.Is(err, ErrNoPublicKey) &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrRequestRejected) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (r *retryableRpcClient) options(ctx context.Context, operation string) []retry.Option {
	return []retry.Option{
		r.attempts,
		r.delay,
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(attempt uint, err error) {
			r.logger.Debug("retrying request", "operation", operation, "attempt", attempt+1, "error", err)
		}),
	}
}

// ChainDataService Interface

func (r *retryableRpcClient) GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error) {
	var result []byte
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.GetPublicKey(ctx, hexAddress)
		return err
	}, r.options(ctx, "get_public_key")...)

	return result, err
}

func (r *retryableRpcClient) GetAccountInfo(ctx context.Context, nativeAddress string) (*AccountInfo, error) {
	var result *AccountInfo
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.GetAccountInfo(ctx, nativeAddress)
		return err
	}, r.options(ctx, "get_account_info")...)

	return result, err
}

func (r *retryableRpcClient) ListValidators(ctx context.Context) ([]Validator, error) {
	var result []Validator
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.ListValidators(ctx)
		return err
	}, r.options(ctx, "list_validators")...)

	return result, err
}

// Simulate is not retried, so a failed simulation surfaces on its first occurrence.
func (r *retryableRpcClient) Simulate(ctx context.Context, txBytes []byte) (*SimulationResult, error) {
	return r.wrappedClient.Simulate(ctx, txBytes)
}

func (r *retryableRpcClient) Broadcast(ctx context.Context, txBytes []byte) (*TxResult, error) {
	return r.wrappedClient.Broadcast(ctx, txBytes)
}

func (r *retryableRpcClient) GetTx(ctx context.Context, txHash string) (*TxResult, error) {
	var result *TxResult
	var err error

	err = retry.Do(func() error {
		result, err = r.wrappedClient.GetTx(ctx, txHash)
		return err
	}, r.options(ctx, "get_tx")...)

	return result, err
}
