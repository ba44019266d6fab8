package coding

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/cosmos/cosmos-sdk/types/bech32"
)

var ErrInvalidAddressFormat = errors.New("invalid address format")

// ToNativeAddress re-encodes a hex account address (ex. 0xabc...) as a bech32 address with the given human readable prefix.
func ToNativeAddress(hexAddress, prefix string) (string, error) {
	normalized := StripHexPrefix(hexAddress)
	if normalized == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidAddressFormat)
	}

	addressBytes, err := hex.DecodeString(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddressFormat, err.Error())
	}

	encoded, err := bech32.ConvertAndEncode(prefix, addressBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddressFormat, err.Error())
	}
	return encoded, nil
}
