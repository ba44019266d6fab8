package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tessellated-io/haqq-delegator/coding"
	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-1193 code for a request the user declined
const userRejectedCode = 4001

// RPCSigner forwards signature requests to an external wallet over JSON-RPC.
type RPCSigner struct {
	client *rpc.Client

	logger *log.Logger
}

var _ Signer = (*RPCSigner)(nil)

func NewRPCSigner(client *rpc.Client, logger *log.Logger) *RPCSigner {
	return &RPCSigner{
		client: client,
		logger: logger.ApplyPrefix("👛"),
	}
}

// DialRPCSigner connects to a wallet JSON-RPC endpoint.
func DialRPCSigner(ctx context.Context, url string, logger *log.Logger) (*RPCSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing wallet at %s: %w", url, err)
	}
	return NewRPCSigner(client, logger), nil
}

func (s *RPCSigner) Close() {
	s.client.Close()
}

func (s *RPCSigner) SignTypedData(ctx context.Context, signerAddress string, typedData apitypes.TypedData) ([]byte, error) {
	if !common.IsHexAddress(signerAddress) {
		return nil, fmt.Errorf("%w: %s", ErrSignerMismatch, signerAddress)
	}

	payload, err := json.Marshal(typedData)
	if err != nil {
		return nil, err
	}

	s.logger.Info("requesting signature from wallet", "signer", signerAddress, "primary_type", typedData.PrimaryType)

	// Some wallets leave off the 0x prefix
	var rawSignature string
	err = s.client.CallContext(ctx, &rawSignature, "eth_signTypedData_v4", signerAddress, string(payload))
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
			return nil, fmt.Errorf("%w: %s", ErrUserRejected, rpcErr.Error())
		}
		return nil, err
	}

	signature, err := coding.DecodeHex(rawSignature)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadSignature, err)
	}
	s.logger.Debug("wallet returned signature", "signature", coding.NormalizeBytesToHex(signature))

	return normalizeSignature(signature)
}
