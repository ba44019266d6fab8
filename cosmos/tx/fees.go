package tx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tessellated-io/haqq-delegator/chains"
)

const (
	DefaultFeeAmount = "5000"
	DefaultGasLimit  = "14000000"
)

var (
	// 1 ISLM = 10^18 aISLM
	baseUnitScale = decimal.New(1, chains.HaqqDecimals)

	// Price per unit of gas, and the safety margin applied on top of simulated usage.
	gasPrice  = decimal.RequireFromString("0.007")
	gasMargin = decimal.RequireFromString("1.1")
)

// DefaultFee is the conservative fee used to simulate a transaction before gas usage is known.
func DefaultFee() Fee {
	return Fee{
		Amount: DefaultFeeAmount,
		Gas:    DefaultGasLimit,
		Denom:  chains.HaqqDenom,
	}
}

// DeriveFee returns the default fee when gasUsed is empty. Otherwise the fee is priced from gasUsed with a 10%
// margin, rounded up, and gasUsed becomes the gas limit.
func DeriveFee(gasUsed string) (Fee, error) {
	gasUsed = strings.TrimSpace(gasUsed)
	if gasUsed == "" {
		return DefaultFee(), nil
	}

	gas, err := decimal.NewFromString(gasUsed)
	if err != nil {
		return Fee{}, fmt.Errorf("%w: %q", ErrInvalidGas, gasUsed)
	}
	if !gas.IsInteger() || !gas.IsPositive() {
		return Fee{}, fmt.Errorf("%w: %q must be a positive integer", ErrInvalidGas, gasUsed)
	}

	amount := gas.Mul(gasPrice).Mul(gasMargin).Ceil()

	return Fee{
		Amount: amount.String(),
		Gas:    gas.String(),
		Denom:  chains.HaqqDenom,
	}, nil
}

// ToBaseAmount converts a display amount (ex. 1.5 ISLM) to base units, subtracting the fee when one is given.
// The fee is taken out of the entered amount so that amount plus fee stays within what the user entered.
func ToBaseAmount(displayAmount decimal.Decimal, fee *Fee) (Coin, error) {
	if !displayAmount.IsPositive() {
		return Coin{}, fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, displayAmount.String())
	}

	amount := displayAmount.Mul(baseUnitScale)

	if fee != nil {
		feeAmount, err := decimal.NewFromString(fee.Amount)
		if err != nil {
			return Coin{}, fmt.Errorf("%w: fee amount %q", ErrInvalidAmount, fee.Amount)
		}
		amount = amount.Sub(feeAmount)
	}

	amount = amount.Truncate(0)
	if !amount.IsPositive() {
		return Coin{}, fmt.Errorf("%w: %s does not cover the fee", ErrInvalidAmount, displayAmount.String())
	}

	return Coin{
		Amount: amount.String(),
		Denom:  chains.HaqqDenom,
	}, nil
}
