package rpc_test

import (
	"context"

	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
)

// fakeService is a scriptable ChainDataService that counts calls.
type fakeService struct {
	calls map[string]int

	getTx     func(call int) (*rpc.TxResult, error)
	simulate  func(call int) (*rpc.SimulationResult, error)
	account   func(call int) (*rpc.AccountInfo, error)
	broadcast func(call int) (*rpc.TxResult, error)
}

var _ rpc.ChainDataService = (*fakeService)(nil)

func newFakeService() *fakeService {
	return &fakeService{calls: map[string]int{}}
}

func (f *fakeService) record(name string) int {
	f.calls[name]++
	return f.calls[name]
}

func (f *fakeService) GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error) {
	f.record("GetPublicKey")
	return nil, rpc.ErrNoPublicKey
}

func (f *fakeService) GetAccountInfo(ctx context.Context, nativeAddress string) (*rpc.AccountInfo, error) {
	return f.account(f.record("GetAccountInfo"))
}

func (f *fakeService) ListValidators(ctx context.Context) ([]rpc.Validator, error) {
	f.record("ListValidators")
	return []rpc.Validator{{OperatorAddress: "haqqvaloper1a"}}, nil
}

func (f *fakeService) Simulate(ctx context.Context, txBytes []byte) (*rpc.SimulationResult, error) {
	return f.simulate(f.record("Simulate"))
}

func (f *fakeService) Broadcast(ctx context.Context, txBytes []byte) (*rpc.TxResult, error) {
	return f.broadcast(f.record("Broadcast"))
}

func (f *fakeService) GetTx(ctx context.Context, txHash string) (*rpc.TxResult, error) {
	return f.getTx(f.record("GetTx"))
}
