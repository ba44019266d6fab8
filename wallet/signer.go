package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var (
	ErrUserRejected   = errors.New("user rejected the signature request")
	ErrSignerMismatch = errors.New("signer address does not belong to this wallet")
	ErrBadSignature   = errors.New("wallet returned a malformed signature")
)

// Signer produces EIP-712 signatures for an Ethereum account.
type Signer interface {
	// SignTypedData returns a 65 byte signature, r ‖ s ‖ v, over the typed data.
	SignTypedData(ctx context.Context, signerAddress string, typedData apitypes.TypedData) ([]byte, error)
}

// Signatures are 65 bytes with a recovery id of 27 or 28.
const signatureLength = 65

func normalizeSignature(signature []byte) ([]byte, error) {
	if len(signature) != signatureLength {
		return nil, ErrBadSignature
	}

	normalized := make([]byte, signatureLength)
	copy(normalized, signature)
	if normalized[64] < 27 {
		normalized[64] += 27
	}
	if normalized[64] != 27 && normalized[64] != 28 {
		return nil, ErrBadSignature
	}

	return normalized, nil
}
