package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/tessellated-io/haqq-delegator/coding"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrNoPublicKey        = errors.New("account has no public key on chain, it must send a transaction first")
	ErrNotFound           = errors.New("not found")
	ErrRequestRejected    = errors.New("request rejected by node")
	ErrUnexpectedResponse = errors.New("unexpected response from node")
	ErrNotIncluded        = errors.New("transaction was not included in a block")
)

// ChainDataService reads chain state and submits transactions.
type ChainDataService interface {
	// GetPublicKey returns the compressed public key of the account behind a 0x address.
	GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error)
	GetAccountInfo(ctx context.Context, nativeAddress string) (*AccountInfo, error)

	ListValidators(ctx context.Context) ([]Validator, error)

	Simulate(ctx context.Context, txBytes []byte) (*SimulationResult, error)
	// Broadcast submits in sync mode. A non-zero code is reported in the result, not as an error.
	Broadcast(ctx context.Context, txBytes []byte) (*TxResult, error)

	// GetTx returns nil and no error when the transaction is not known yet.
	GetTx(ctx context.Context, txHash string) (*TxResult, error)
}

type AccountInfo struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64

	// Empty until the account has signed a transaction
	PubKey []byte
}

type Validator struct {
	OperatorAddress string `json:"operator_address"`
	Moniker         string `json:"moniker"`
	Status          string `json:"status"`
	Jailed          bool   `json:"jailed"`
	Tokens          string `json:"tokens"`
	CommissionRate  string `json:"commission_rate"`
}

// IsBonded reports whether the validator is in the active set.
func (v Validator) IsBonded() bool {
	return v.Status == "BOND_STATUS_BONDED"
}

type SimulationResult struct {
	GasWanted uint64
	GasUsed   uint64
}

type TxResult struct {
	TxHash    string `json:"txhash"`
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace"`
	RawLog    string `json:"raw_log"`
	Height    int64  `json:"height"`
	GasWanted int64  `json:"gas_wanted"`
	GasUsed   int64  `json:"gas_used"`
}

// Rejection returns a *ChainRejection if the chain refused the transaction, and nil otherwise.
func (r *TxResult) Rejection() error {
	if r.Code == 0 {
		return nil
	}

	return &ChainRejection{
		TxHash:    r.TxHash,
		Codespace: r.Codespace,
		Code:      r.Code,
		RawLog:    r.RawLog,
	}
}

// ChainRejection is a transaction the chain refused with a non-zero code.
type ChainRejection struct {
	TxHash    string
	Codespace string
	Code      uint32
	RawLog    string
}

// Error is the chain's raw log, unmodified.
func (r *ChainRejection) Error() string {
	if r.RawLog == "" {
		return fmt.Sprintf("transaction rejected with code %d in codespace %q", r.Code, r.Codespace)
	}
	return r.RawLog
}

func (r *ChainRejection) IsGasRelated() bool {
	return IsGasRelatedError(r.Codespace, r.Code)
}

// lookupPublicKey resolves a 0x address to the public key recorded on its account.
func lookupPublicKey(ctx context.Context, service ChainDataService, accountPrefix, hexAddress string) ([]byte, error) {
	nativeAddress, err := coding.ToNativeAddress(hexAddress, accountPrefix)
	if err != nil {
		return nil, err
	}

	account, err := service.GetAccountInfo(ctx, nativeAddress)
	if err != nil {
		return nil, err
	}
	if len(account.PubKey) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPublicKey, nativeAddress)
	}

	return account.PubKey, nil
}
