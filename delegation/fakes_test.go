package delegation_test

import (
	"context"
	"sync"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/cosmos/tx"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// fakeChainData models an account whose sequence advances on every accepted broadcast.
type fakeChainData struct {
	lock sync.Mutex

	sequence      uint64
	advanceOnSend bool

	pubKeyErr    error
	accountErr   error
	simulateErr  error
	broadcastErr error
	gasUsed      uint64
	broadcastRes *rpc.TxResult

	calls map[string]int
}

func newFakeChainData() *fakeChainData {
	return &fakeChainData{
		sequence:      7,
		advanceOnSend: true,
		gasUsed:       100000,
		calls:         map[string]int{},
	}
}

func (f *fakeChainData) count(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func (f *fakeChainData) record(name string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[name]++
}

func (f *fakeChainData) GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error) {
	f.record("GetPublicKey")
	if f.pubKeyErr != nil {
		return nil, f.pubKeyErr
	}
	return []byte{0x02, 0x01}, nil
}

func (f *fakeChainData) GetAccountInfo(ctx context.Context, nativeAddress string) (*rpc.AccountInfo, error) {
	f.record("GetAccountInfo")
	if f.accountErr != nil {
		return nil, f.accountErr
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	return &rpc.AccountInfo{Address: nativeAddress, AccountNumber: 42, Sequence: f.sequence}, nil
}

func (f *fakeChainData) Simulate(ctx context.Context, txBytes []byte) (*rpc.SimulationResult, error) {
	f.record("Simulate")
	if f.simulateErr != nil {
		return nil, f.simulateErr
	}
	return &rpc.SimulationResult{GasUsed: f.gasUsed, GasWanted: 14000000}, nil
}

func (f *fakeChainData) Broadcast(ctx context.Context, txBytes []byte) (*rpc.TxResult, error) {
	f.record("Broadcast")
	if f.broadcastErr != nil {
		return nil, f.broadcastErr
	}
	if f.broadcastRes != nil {
		return f.broadcastRes, nil
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	if f.advanceOnSend {
		f.sequence++
	}
	return &rpc.TxResult{TxHash: "C0FFEE", Code: 0}, nil
}

// builtEnvelope is what the builder was asked to build.
type builtEnvelope struct {
	sequence  uint64
	validator string
	amount    tx.Coin
	fee       tx.Fee
	memo      string
}

type fakeBuilder struct {
	lock  sync.Mutex
	built []builtEnvelope

	// Fail the nth call (1 based), 0 never fails
	failOn int
	err    error
}

func (b *fakeBuilder) BuildUnsigned(chain chains.CosmosChain, sender *tx.Sender, validatorAddress string, amount tx.Coin, fee tx.Fee, memo string) (*tx.UnsignedTxEnvelope, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.built = append(b.built, builtEnvelope{
		sequence:  sender.Sequence,
		validator: validatorAddress,
		amount:    amount,
		fee:       fee,
		memo:      memo,
	})
	if b.failOn == len(b.built) {
		return nil, b.err
	}

	return &tx.UnsignedTxEnvelope{
		TypedData:     apitypes.TypedData{PrimaryType: "Tx"},
		SignBytes:     []byte("sign doc"),
		BodyBytes:     []byte("body"),
		AuthInfoBytes: []byte("auth info"),
		Fee:           fee,
		Amount:        amount,
		Sequence:      sender.Sequence,
	}, nil
}

func (b *fakeBuilder) sequences() []uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	sequences := make([]uint64, 0, len(b.built))
	for _, built := range b.built {
		sequences = append(sequences, built.sequence)
	}
	return sequences
}

type fakeSigner struct {
	lock  sync.Mutex
	calls int

	failOn int
	err    error

	// When set, signing waits for it to close
	block chan struct{}
	// Closed when the first signature request arrives
	entered chan struct{}
}

func (s *fakeSigner) SignTypedData(ctx context.Context, signerAddress string, typedData apitypes.TypedData) ([]byte, error) {
	s.lock.Lock()
	s.calls++
	call := s.calls
	s.lock.Unlock()

	if s.entered != nil && call == 1 {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
	if s.failOn == call {
		return nil, s.err
	}

	signature := make([]byte, 65)
	signature[64] = 27
	return signature, nil
}

func (s *fakeSigner) count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls
}
