package wallet

import (
	"context"
	"fmt"

	"github.com/tessellated-io/haqq-delegator/crypto"
	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// KeySigner signs typed data with a locally held eth_secp256k1 key.
type KeySigner struct {
	keyPair *crypto.EthermintKeyPair
	address common.Address

	logger *log.Logger
}

var _ Signer = (*KeySigner)(nil)

func NewKeySigner(keyPair *crypto.EthermintKeyPair, logger *log.Logger) (*KeySigner, error) {
	hexAddress, err := keyPair.EthAddress()
	if err != nil {
		return nil, err
	}

	return &KeySigner{
		keyPair: keyPair,
		address: common.HexToAddress(hexAddress),

		logger: logger.ApplyPrefix("🔑"),
	}, nil
}

// NewKeySignerFromMnemonic derives the first Ethereum account of the mnemonic.
func NewKeySignerFromMnemonic(mnemonic string, logger *log.Logger) (*KeySigner, error) {
	keyPair, err := crypto.NewEthermintKeyPairFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return NewKeySigner(keyPair, logger)
}

// Address is the checksummed 0x address of the key.
func (s *KeySigner) Address() string {
	return s.address.Hex()
}

func (s *KeySigner) SignTypedData(ctx context.Context, signerAddress string, typedData apitypes.TypedData) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !common.IsHexAddress(signerAddress) || common.HexToAddress(signerAddress) != s.address {
		return nil, fmt.Errorf("%w: %s", ErrSignerMismatch, signerAddress)
	}

	signBytes, err := crypto.TypedDataSignBytes(typedData)
	if err != nil {
		return nil, err
	}

	signature, err := s.keyPair.SignBytes(signBytes)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("signed typed data", "signer", s.Address(), "primary_type", typedData.PrimaryType)
	return normalizeSignature(signature)
}
