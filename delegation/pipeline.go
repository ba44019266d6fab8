package delegation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/coding"
	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/cosmos/tx"
	"github.com/tessellated-io/haqq-delegator/log"
	"github.com/tessellated-io/haqq-delegator/util"
	"github.com/tessellated-io/haqq-delegator/wallet"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pipeline delegates stake: resolve the sender, simulate with a provisional fee, refine the fee from gas used,
// then build, sign and broadcast for real. Failures are never retried; a retry is a new attempt with freshly
// resolved sender state.
type Pipeline struct {
	chainData ChainData
	signer    wallet.Signer
	builder   tx.EnvelopeBuilder

	observers []Observer
	locks     *senderLocks

	// Last sequence successfully broadcast per sender
	sequenceLock sync.Mutex
	broadcasted  map[string]uint64

	logger *log.Logger
}

// ChainData is the part of the chain data service the pipeline uses.
type ChainData interface {
	GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error)
	GetAccountInfo(ctx context.Context, nativeAddress string) (*rpc.AccountInfo, error)
	Simulate(ctx context.Context, txBytes []byte) (*rpc.SimulationResult, error)
	Broadcast(ctx context.Context, txBytes []byte) (*rpc.TxResult, error)
}

func NewPipeline(chainData ChainData, signer wallet.Signer, builder tx.EnvelopeBuilder, logger *log.Logger, observers ...Observer) (*Pipeline, error) {
	if chainData == nil || signer == nil || builder == nil {
		return nil, errors.New("pipeline needs chain data, a signer and a builder")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		chainData: chainData,
		signer:    signer,
		builder:   builder,

		observers: observers,
		locks:     newSenderLocks(),

		broadcasted: make(map[string]uint64),

		logger: logger.ApplyPrefix("🥩"),
	}, nil
}

// run is the mutable state of one attempt.
type run struct {
	attempt *Attempt
	request Request
	chain   chains.CosmosChain

	enteredAt time.Time
	logger    *log.Logger
}

// Delegate runs one attempt. The returned attempt is always non-nil and terminal; the error is the attempt's
// error and is a *StageError.
func (p *Pipeline) Delegate(ctx context.Context, request Request) (*Attempt, error) {
	now := time.Now()
	r := &run{
		attempt: &Attempt{
			ID:        uuid.NewString(),
			State:     StateIdle,
			StartedAt: now,
		},
		request:   request,
		enteredAt: now,
	}
	r.logger = p.logger.With("attempt_id", r.attempt.ID)

	if err := request.validate(); err != nil {
		return p.fail(r, ErrPrecondition, err)
	}
	r.chain = chains.ToCosmosChain(request.Chain)
	r.logger = r.logger.With("chain_id", r.chain.CosmosChainID, "sender", request.SenderAddress)

	// The sender address must be the wallet account, or the signature will not verify
	expectedSender, err := coding.ToNativeAddress(request.SignerAddress, request.Chain.AccountPrefix)
	if err != nil {
		return p.fail(r, ErrPrecondition, err)
	}
	if expectedSender != request.SenderAddress {
		return p.fail(r, ErrPrecondition, fmt.Errorf("sender %s is not the wallet account %s", request.SenderAddress, expectedSender))
	}

	release, err := p.locks.acquire(ctx, request.SenderAddress)
	if err != nil {
		return p.fail(r, ErrPrecondition, fmt.Errorf("waiting for in-flight attempt: %w", err))
	}
	defer release()

	// Resolve sender
	p.transition(r, StateResolvingSender, nil)
	sender, err := p.resolveSender(ctx, r)
	if err != nil {
		return p.fail(r, ErrSenderResolution, err)
	}
	r.attempt.Sender = sender
	r.logger = r.logger.With("sequence", sender.Sequence)

	// Simulate with the provisional fee
	p.transition(r, StateSimulating, nil)
	gasUsed, err := p.simulate(ctx, r, sender)
	if err != nil {
		return p.fail(r, ErrSimulation, err)
	}
	r.attempt.SimulationGasUsed = gasUsed

	// Refine the fee
	p.transition(r, StateRefiningFee, nil)
	fee, err := tx.DeriveFee(strconv.FormatUint(gasUsed, 10))
	if err != nil {
		return p.fail(r, ErrBuild, err)
	}
	r.attempt.Fee = fee
	r.logger.Info("refined fee", "gas_used", gasUsed, "fee", fee.Amount, "gas", fee.Gas)

	// Build and sign for real
	signed, amount, err := p.signedEnvelope(ctx, r, sender, fee, func(state State) { p.transition(r, state, nil) })
	if amount != nil {
		r.attempt.Amount = *amount
	}
	if err != nil {
		var stepErr *stepError
		if errors.As(err, &stepErr) && stepErr.state == StateSigning {
			return p.fail(r, ErrSigning, stepErr.err)
		}
		return p.fail(r, ErrBuild, unwrapStep(err))
	}

	// Broadcast
	p.transition(r, StateBroadcasting, nil)
	txBytes, err := signed.Bytes()
	if err != nil {
		return p.fail(r, ErrBroadcast, err)
	}
	result, err := p.chainData.Broadcast(ctx, txBytes)
	if err != nil {
		return p.fail(r, ErrBroadcast, err)
	}
	if rejection := result.Rejection(); rejection != nil {
		r.logger.Error("chain rejected delegation", "tx_hash", result.TxHash, "code", result.Code, "codespace", result.Codespace)
		return p.fail(r, ErrBroadcast, rejection)
	}
	p.recordBroadcast(request.SenderAddress, sender.Sequence)

	r.attempt.Result = result
	p.transition(r, StateSucceeded, nil)
	r.logger.Info("delegation broadcast", "tx_hash", result.TxHash, "amount", r.attempt.Amount.Amount)

	return r.attempt, nil
}

// resolveSender fetches the public key and account state concurrently. Nothing is cached across attempts.
func (p *Pipeline) resolveSender(ctx context.Context, r *run) (*tx.Sender, error) {
	var pubKey []byte
	var account *rpc.AccountInfo

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := p.chainData.GetPublicKey(groupCtx, r.request.SignerAddress)
		if err != nil {
			return fmt.Errorf("public key: %w", err)
		}
		pubKey = result
		return nil
	})
	group.Go(func() error {
		result, err := p.chainData.GetAccountInfo(groupCtx, r.request.SenderAddress)
		if err != nil {
			return fmt.Errorf("account info: %w", err)
		}
		account = result
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if last, found := p.lastBroadcast(r.request.SenderAddress); found && account.Sequence <= last {
		return nil, fmt.Errorf("%w: got %d, last broadcast %d", ErrStaleSequence, account.Sequence, last)
	}

	r.logger.Debug("resolved sender", "account_number", account.AccountNumber, "sequence", account.Sequence, "pubkey", coding.PayloadFingerprint(pubKey))
	return &tx.Sender{
		AccountAddress: r.request.SenderAddress,
		Sequence:       account.Sequence,
		AccountNumber:  account.AccountNumber,
		PubKey:         pubKey,
	}, nil
}

// simulate signs a provisional transaction and dry runs it to learn gas usage.
func (p *Pipeline) simulate(ctx context.Context, r *run, sender *tx.Sender) (uint64, error) {
	provisionalFee, err := tx.DeriveFee("")
	if err != nil {
		return 0, err
	}
	r.attempt.ProvisionalFee = provisionalFee

	signed, amount, err := p.signedEnvelope(ctx, r, sender, provisionalFee, func(State) {})
	if amount != nil {
		r.attempt.SimulationAmount = *amount
	}
	if err != nil {
		return 0, unwrapStep(err)
	}

	txBytes, err := signed.Bytes()
	if err != nil {
		return 0, err
	}
	result, err := p.chainData.Simulate(ctx, txBytes)
	if err != nil {
		return 0, err
	}
	if result.GasUsed == 0 {
		return 0, errors.New("simulation reported no gas used")
	}

	r.logger.Debug("simulated delegation", "gas_used", result.GasUsed, "amount", r.attempt.SimulationAmount.Amount)
	return result.GasUsed, nil
}

// stepError records the state a signedEnvelope step failed in.
type stepError struct {
	state State
	err   error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func unwrapStep(err error) error {
	var stepErr *stepError
	if errors.As(err, &stepErr) {
		return stepErr.err
	}
	return err
}

// signedEnvelope builds, signs and assembles a delegation paying the given fee. The amount is the intent minus
// that fee. step is told when building and signing start.
func (p *Pipeline) signedEnvelope(ctx context.Context, r *run, sender *tx.Sender, fee tx.Fee, step func(State)) (*tx.SignedTxEnvelope, *tx.Coin, error) {
	step(StateBuilding)
	amount, err := tx.ToBaseAmount(r.request.Intent.Amount, &fee)
	if err != nil {
		return nil, nil, &stepError{state: StateBuilding, err: err}
	}

	unsigned, err := p.builder.BuildUnsigned(r.chain, sender, r.request.Intent.ValidatorAddress, amount, fee, r.request.Memo)
	if err != nil {
		return nil, &amount, &stepError{state: StateBuilding, err: err}
	}

	step(StateSigning)
	signature, err := p.signer.SignTypedData(ctx, r.request.SignerAddress, unsigned.TypedData)
	if err != nil {
		return nil, &amount, &stepError{state: StateSigning, err: err}
	}

	signed, err := tx.Assemble(unsigned, signature)
	if err != nil {
		return nil, &amount, &stepError{state: StateSigning, err: err}
	}

	return signed, &amount, nil
}

func (p *Pipeline) lastBroadcast(sender string) (uint64, bool) {
	p.sequenceLock.Lock()
	defer p.sequenceLock.Unlock()

	sequence, found := p.broadcasted[sender]
	return sequence, found
}

func (p *Pipeline) recordBroadcast(sender string, sequence uint64) {
	p.sequenceLock.Lock()
	defer p.sequenceLock.Unlock()

	p.broadcasted[sender] = sequence
}

func (p *Pipeline) transition(r *run, to State, err error) {
	now := time.Now()
	transition := Transition{
		AttemptID: r.attempt.ID,
		From:      r.attempt.State,
		To:        to,
		Elapsed:   now.Sub(r.enteredAt),
		Err:       err,
	}

	r.attempt.State = to
	r.enteredAt = now
	if to.IsTerminal() {
		r.attempt.FinishedAt = now
	}

	r.logger.Debug("state changed", "from", transition.From.String(), "to", to.String())
	for _, observer := range p.observers {
		p.notify(r, observer, transition)
	}
}

// notify keeps a misbehaving observer from taking down the attempt.
func (p *Pipeline) notify(r *run, observer Observer, transition Transition) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("observer panicked", "to", transition.To.String(), "error", util.ErrorFromPanic(recovered).Error())
		}
	}()

	observer(transition)
}

// fail ends the attempt with its first error.
func (p *Pipeline) fail(r *run, kind, err error) (*Attempt, error) {
	stageErr := &StageError{
		Stage: r.attempt.State,
		Kind:  kind,
		Err:   err,
	}

	r.attempt.Err = stageErr
	r.attempt.Result = nil
	p.transition(r, StateFailed, stageErr)
	r.logger.Warn("delegation failed", "stage", stageErr.Stage.String(), "error", stageErr.Error())

	return r.attempt, stageErr
}
