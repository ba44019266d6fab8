package delegation

import (
	"errors"
	"strings"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/coding"

	"github.com/shopspring/decimal"
)

// DelegationIntent is what the user asked for.
type DelegationIntent struct {
	ValidatorAddress string
	// Amount in display units, ex. 1.5 ISLM
	Amount decimal.Decimal
}

// Request is everything an attempt needs up front.
type Request struct {
	Chain *chains.ChainParams

	// 0x address of the wallet account
	SignerAddress string
	// The same account in bech32 form
	SenderAddress string

	Intent DelegationIntent
	Memo   string
}

// NewRequest derives the sender address from the wallet address using the chain's account prefix.
func NewRequest(chain *chains.ChainParams, signerAddress string, intent DelegationIntent, memo string) (Request, error) {
	request := Request{
		Chain:         chain,
		SignerAddress: signerAddress,
		Intent:        intent,
		Memo:          memo,
	}
	if chain == nil || strings.TrimSpace(signerAddress) == "" {
		return request, nil
	}

	senderAddress, err := coding.ToNativeAddress(signerAddress, chain.AccountPrefix)
	if err != nil {
		return Request{}, err
	}
	request.SenderAddress = senderAddress

	return request, nil
}

// validate checks everything that does not need the network.
func (r *Request) validate() error {
	var errs []error
	if strings.TrimSpace(r.SenderAddress) == "" {
		errs = append(errs, ErrMissingSender)
	}
	if strings.TrimSpace(r.SignerAddress) == "" {
		errs = append(errs, ErrMissingSigner)
	}
	if strings.TrimSpace(r.Intent.ValidatorAddress) == "" {
		errs = append(errs, ErrMissingValidator)
	}
	if r.Chain == nil {
		errs = append(errs, ErrMissingChain)
	}
	if !r.Intent.Amount.IsPositive() {
		errs = append(errs, ErrNonPositive)
	}

	return errors.Join(errs...)
}
