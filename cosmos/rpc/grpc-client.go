package rpc

import (
	"context"
	"fmt"

	"github.com/tessellated-io/haqq-delegator/cosmos/tx"
	"github.com/tessellated-io/haqq-delegator/grpc"
	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/cosmos/cosmos-sdk/codec"
	"github.com/cosmos/cosmos-sdk/types/query"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"
	"github.com/samber/lo"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GrpcClient is the gRPC implementation of ChainDataService.
type GrpcClient struct {
	conn *grpclib.ClientConn
	cdc  *codec.ProtoCodec

	accountPrefix string

	authClient    authtypes.QueryClient
	stakingClient stakingtypes.QueryClient
	txClient      txtypes.ServiceClient

	logger *log.Logger
}

// Ensure that GrpcClient implements ChainDataService
var _ ChainDataService = (*GrpcClient)(nil)

// NewGrpcClient makes a new ChainDataService backed by a node's gRPC endpoint. Close the client when done.
func NewGrpcClient(nodeGrpcUri, accountPrefix string, logger *log.Logger) (*GrpcClient, error) {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := grpc.GetGrpcConnection(nodeGrpcUri)
	if err != nil {
		logger.Error("unable to connect to gRPC", "grpc_url", nodeGrpcUri)
		return nil, err
	}

	return &GrpcClient{
		conn: conn,
		cdc:  codec.NewProtoCodec(tx.InterfaceRegistry()),

		accountPrefix: accountPrefix,

		authClient:    authtypes.NewQueryClient(conn),
		stakingClient: stakingtypes.NewQueryClient(conn),
		txClient:      txtypes.NewServiceClient(conn),

		logger: logger.ApplyPrefix("📡").With("grpc_url", nodeGrpcUri),
	}, nil
}

func (r *GrpcClient) Close() error {
	return r.conn.Close()
}

// ChainDataService Interface

func (r *GrpcClient) GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error) {
	return lookupPublicKey(ctx, r, r.accountPrefix, hexAddress)
}

func (r *GrpcClient) GetAccountInfo(ctx context.Context, nativeAddress string) (*AccountInfo, error) {
	// Make a query
	query := &authtypes.QueryAccountRequest{Address: nativeAddress}
	res, err := r.authClient.Account(
		ctx,
		query,
	)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, nativeAddress)
		}
		return nil, classifyGrpcError(err)
	}

	// Deserialize response
	var account authtypes.AccountI
	if err := r.cdc.UnpackAny(res.Account, &account); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, err)
	}

	info := &AccountInfo{
		Address:       account.GetAddress().String(),
		AccountNumber: account.GetAccountNumber(),
		Sequence:      account.GetSequence(),
	}
	if pubKey := account.GetPubKey(); pubKey != nil {
		info.PubKey = pubKey.Bytes()
	}

	r.logger.Debug("fetched account", "address", nativeAddress, "account_number", info.AccountNumber, "sequence", info.Sequence)
	return info, nil
}

func (r *GrpcClient) ListValidators(ctx context.Context) ([]Validator, error) {
	fetchValidatorPageFunc := func(ctx context.Context, pageKey []byte) (*paginatedRpcResponse[Validator], error) {
		pagination := &query.PageRequest{
			Key:   pageKey,
			Limit: pageSize,
		}

		request := &stakingtypes.QueryValidatorsRequest{
			Pagination: pagination,
		}
		response, err := r.stakingClient.Validators(ctx, request)
		if err != nil {
			return nil, classifyGrpcError(err)
		}

		validators := lo.Map(response.Validators, func(v stakingtypes.Validator, _ int) Validator {
			return Validator{
				OperatorAddress: v.OperatorAddress,
				Moniker:         v.Description.Moniker,
				Status:          v.Status.String(),
				Jailed:          v.Jailed,
				Tokens:          v.Tokens.String(),
				CommissionRate:  v.Commission.CommissionRates.Rate.String(),
			}
		})

		var nextKey []byte
		if response.Pagination != nil {
			nextKey = response.Pagination.NextKey
		}

		return &paginatedRpcResponse[Validator]{
			data:    validators,
			nextKey: nextKey,
		}, nil
	}

	return retrievePaginatedData(ctx, r.logger, "validators", fetchValidatorPageFunc)
}

func (r *GrpcClient) Simulate(
	ctx context.Context,
	txBytes []byte,
) (*SimulationResult, error) {
	// Form a query
	query := &txtypes.SimulateRequest{
		TxBytes: txBytes,
	}
	simulationResponse, err := r.txClient.Simulate(ctx, query)
	if err != nil {
		return nil, classifyGrpcError(err)
	}
	if simulationResponse.GasInfo == nil {
		return nil, fmt.Errorf("%w: simulation returned no gas info", ErrUnexpectedResponse)
	}

	return &SimulationResult{
		GasWanted: simulationResponse.GasInfo.GasWanted,
		GasUsed:   simulationResponse.GasInfo.GasUsed,
	}, nil
}

func (r *GrpcClient) Broadcast(
	ctx context.Context,
	txBytes []byte,
) (*TxResult, error) {
	// Form a query
	query := &txtypes.BroadcastTxRequest{
		Mode:    txtypes.BroadcastMode_BROADCAST_MODE_SYNC,
		TxBytes: txBytes,
	}

	// Send tx
	response, err := r.txClient.BroadcastTx(
		ctx,
		query,
	)
	if err != nil {
		return nil, classifyGrpcError(err)
	}
	if response.TxResponse == nil {
		return nil, fmt.Errorf("%w: broadcast returned no tx response", ErrUnexpectedResponse)
	}

	return &TxResult{
		TxHash:    response.TxResponse.TxHash,
		Code:      response.TxResponse.Code,
		Codespace: response.TxResponse.Codespace,
		RawLog:    response.TxResponse.RawLog,
		Height:    response.TxResponse.Height,
		GasWanted: response.TxResponse.GasWanted,
		GasUsed:   response.TxResponse.GasUsed,
	}, nil
}

func (r *GrpcClient) GetTx(ctx context.Context, txHash string) (*TxResult, error) {
	request := &txtypes.GetTxRequest{Hash: txHash}
	response, err := r.txClient.GetTx(ctx, request)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, classifyGrpcError(err)
	}
	if response.TxResponse == nil {
		return nil, nil
	}

	return &TxResult{
		TxHash:    response.TxResponse.TxHash,
		Code:      response.TxResponse.Code,
		Codespace: response.TxResponse.Codespace,
		RawLog:    response.TxResponse.RawLog,
		Height:    response.TxResponse.Height,
		GasWanted: response.TxResponse.GasWanted,
		GasUsed:   response.TxResponse.GasUsed,
	}, nil
}

// classifyGrpcError marks errors the node will return again on retry.
func classifyGrpcError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, status.Convert(err).Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrRequestRejected, status.Convert(err).Message())
	default:
		return err
	}
}
