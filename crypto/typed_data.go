package crypto

import (
	"fmt"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// TypedDataSignBytes returns the EIP-712 pre-image of typed data, "\x19\x01" ‖ domainSeparator ‖ hashStruct(message).
// Keccak hashing it yields the digest a wallet signs for eth_signTypedData_v4.
func TypedDataSignBytes(typedData apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hashing domain: %w", err)
	}

	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("hashing message: %w", err)
	}

	return []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash))), nil
}
