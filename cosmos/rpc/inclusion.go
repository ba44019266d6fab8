package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tessellated-io/haqq-delegator/log"

	retry "github.com/avast/retry-go/v4"
)

var errPending = errors.New("transaction not yet included")

// PollForInclusion waits until a broadcast transaction shows up in a block, checking every delay. The result of
// an included transaction may still carry a non-zero code.
func PollForInclusion(ctx context.Context, service ChainDataService, txHash string, attempts uint, delay time.Duration, logger *log.Logger) (*TxResult, error) {
	if attempts == 0 {
		attempts = 1
	}

	var result *TxResult
	err := retry.Do(func() error {
		txResult, err := service.GetTx(ctx, txHash)
		if err != nil {
			return err
		}
		if txResult == nil {
			return errPending
		}

		result = txResult
		return nil
	},
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Debug("waiting for inclusion", "tx_hash", txHash, "attempt", attempt+1, "error", err)
		}),
	)
	if errors.Is(err, errPending) {
		return nil, fmt.Errorf("%w: %s after %d checks", ErrNotIncluded, txHash, attempts)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("transaction included", "tx_hash", txHash, "height", result.Height, "code", result.Code)
	return result, nil
}
