package delegation

import (
	"time"

	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/cosmos/tx"
)

// Attempt is the record of one run through the pipeline.
type Attempt struct {
	ID    string
	State State

	Sender *tx.Sender

	// Simulation pass
	ProvisionalFee    tx.Fee
	SimulationAmount  tx.Coin
	SimulationGasUsed uint64

	// Real pass
	Fee    tx.Fee
	Amount tx.Coin

	// Exactly one of Result and Err is set once the attempt is terminal
	Result *rpc.TxResult
	Err    error

	StartedAt  time.Time
	FinishedAt time.Time
}

// Transition is reported to observers every time an attempt changes state.
type Transition struct {
	AttemptID string
	From      State
	To        State

	// Time spent in From
	Elapsed time.Duration

	// Set when To is StateFailed
	Err error
}

// Observer receives transitions synchronously, in order. It must not block.
type Observer func(Transition)
