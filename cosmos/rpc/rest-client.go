package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

const (
	accountPath    = "/cosmos/auth/v1beta1/accounts/{address}"
	validatorsPath = "/cosmos/staking/v1beta1/validators"
	simulatePath   = "/cosmos/tx/v1beta1/simulate"
	txsPath        = "/cosmos/tx/v1beta1/txs"
	txPath         = "/cosmos/tx/v1beta1/txs/{hash}"
)

// restClient talks to the Cosmos LCD REST API of a node.
type restClient struct {
	client        *resty.Client
	accountPrefix string

	logger *log.Logger
}

// Ensure that restClient implements ChainDataService
var _ ChainDataService = (*restClient)(nil)

// NewRestClient makes a new ChainDataService backed by a REST endpoint.
func NewRestClient(restEndpoint, accountPrefix string, timeout time.Duration, logger *log.Logger) ChainDataService {
	if logger == nil {
		logger = log.Default()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(restEndpoint, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &restClient{
		client:        client,
		accountPrefix: accountPrefix,

		logger: logger.ApplyPrefix("🌐").With("endpoint", restEndpoint),
	}
}

// Wire types. Protobuf JSON encodes 64 bit integers as strings.

type restFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type restPubKey struct {
	Type string `json:"@type"`
	Key  string `json:"key"`
}

type restAccount struct {
	Type          string      `json:"@type"`
	Address       string      `json:"address"`
	PubKey        *restPubKey `json:"pub_key"`
	AccountNumber string      `json:"account_number"`
	Sequence      string      `json:"sequence"`

	// Ethermint and vesting accounts nest the base account
	BaseAccount        *restAccount `json:"base_account"`
	BaseVestingAccount *struct {
		BaseAccount *restAccount `json:"base_account"`
	} `json:"base_vesting_account"`
}

type restAccountResponse struct {
	Account restAccount `json:"account"`
}

type restValidator struct {
	OperatorAddress string `json:"operator_address"`
	Jailed          bool   `json:"jailed"`
	Status          string `json:"status"`
	Tokens          string `json:"tokens"`
	Description     struct {
		Moniker string `json:"moniker"`
	} `json:"description"`
	Commission struct {
		CommissionRates struct {
			Rate string `json:"rate"`
		} `json:"commission_rates"`
	} `json:"commission"`
}

type restPagination struct {
	NextKey *string `json:"next_key"`
}

type restValidatorsResponse struct {
	Validators []restValidator `json:"validators"`
	Pagination restPagination  `json:"pagination"`
}

type restGasInfo struct {
	GasWanted string `json:"gas_wanted"`
	GasUsed   string `json:"gas_used"`
}

type restSimulateResponse struct {
	GasInfo *restGasInfo `json:"gas_info"`
}

type restTxResponse struct {
	Height    string `json:"height"`
	TxHash    string `json:"txhash"`
	Codespace string `json:"codespace"`
	Code      uint32 `json:"code"`
	RawLog    string `json:"raw_log"`
	GasWanted string `json:"gas_wanted"`
	GasUsed   string `json:"gas_used"`
}

type restTxEnvelope struct {
	TxResponse *restTxResponse `json:"tx_response"`
}

// ChainDataService Interface

func (r *restClient) GetPublicKey(ctx context.Context, hexAddress string) ([]byte, error) {
	return lookupPublicKey(ctx, r, r.accountPrefix, hexAddress)
}

func (r *restClient) GetAccountInfo(ctx context.Context, nativeAddress string) (*AccountInfo, error) {
	var response restAccountResponse
	err := r.do(r.client.R().
		SetContext(ctx).
		SetPathParam("address", nativeAddress).
		SetResult(&response), http.MethodGet, accountPath)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, nativeAddress)
		}
		return nil, err
	}

	account := baseAccount(&response.Account)

	accountNumber, err := parseUint(account.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: account number %q", ErrUnexpectedResponse, account.AccountNumber)
	}
	sequence, err := parseUint(account.Sequence)
	if err != nil {
		return nil, fmt.Errorf("%w: sequence %q", ErrUnexpectedResponse, account.Sequence)
	}

	info := &AccountInfo{
		Address:       account.Address,
		AccountNumber: accountNumber,
		Sequence:      sequence,
	}
	if account.PubKey != nil && account.PubKey.Key != "" {
		info.PubKey, err = base64.StdEncoding.DecodeString(account.PubKey.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %s", ErrUnexpectedResponse, err)
		}
	}

	r.logger.Debug("fetched account", "address", nativeAddress, "account_number", accountNumber, "sequence", sequence)
	return info, nil
}

func (r *restClient) ListValidators(ctx context.Context) ([]Validator, error) {
	fetchValidatorPageFunc := func(ctx context.Context, pageKey []byte) (*paginatedRpcResponse[Validator], error) {
		request := r.client.R().
			SetContext(ctx).
			SetQueryParam("pagination.limit", strconv.Itoa(pageSize))
		if len(pageKey) > 0 {
			request.SetQueryParam("pagination.key", string(pageKey))
		}

		var response restValidatorsResponse
		if err := r.do(request.SetResult(&response), http.MethodGet, validatorsPath); err != nil {
			return nil, err
		}

		validators := lo.Map(response.Validators, func(v restValidator, _ int) Validator {
			return Validator{
				OperatorAddress: v.OperatorAddress,
				Moniker:         v.Description.Moniker,
				Status:          v.Status,
				Jailed:          v.Jailed,
				Tokens:          v.Tokens,
				CommissionRate:  v.Commission.CommissionRates.Rate,
			}
		})

		var nextKey []byte
		if response.Pagination.NextKey != nil {
			nextKey = []byte(*response.Pagination.NextKey)
		}

		return &paginatedRpcResponse[Validator]{
			data:    validators,
			nextKey: nextKey,
		}, nil
	}

	return retrievePaginatedData(ctx, r.logger, "validators", fetchValidatorPageFunc)
}

func (r *restClient) Simulate(ctx context.Context, txBytes []byte) (*SimulationResult, error) {
	var response restSimulateResponse
	err := r.do(r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"tx_bytes": base64.StdEncoding.EncodeToString(txBytes)}).
		SetResult(&response), http.MethodPost, simulatePath)
	if err != nil {
		return nil, err
	}
	if response.GasInfo == nil {
		return nil, fmt.Errorf("%w: simulation returned no gas info", ErrUnexpectedResponse)
	}

	gasUsed, err := parseUint(response.GasInfo.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("%w: gas used %q", ErrUnexpectedResponse, response.GasInfo.GasUsed)
	}
	gasWanted, err := parseUint(response.GasInfo.GasWanted)
	if err != nil {
		return nil, fmt.Errorf("%w: gas wanted %q", ErrUnexpectedResponse, response.GasInfo.GasWanted)
	}

	return &SimulationResult{
		GasWanted: gasWanted,
		GasUsed:   gasUsed,
	}, nil
}

func (r *restClient) Broadcast(ctx context.Context, txBytes []byte) (*TxResult, error) {
	var response restTxEnvelope
	err := r.do(r.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
			"mode":     "BROADCAST_MODE_SYNC",
		}).
		SetResult(&response), http.MethodPost, txsPath)
	if err != nil {
		return nil, err
	}
	if response.TxResponse == nil {
		return nil, fmt.Errorf("%w: broadcast returned no tx response", ErrUnexpectedResponse)
	}

	return toTxResult(response.TxResponse)
}

func (r *restClient) GetTx(ctx context.Context, txHash string) (*TxResult, error) {
	var response restTxEnvelope
	err := r.do(r.client.R().
		SetContext(ctx).
		SetPathParam("hash", txHash).
		SetResult(&response), http.MethodGet, txPath)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if response.TxResponse == nil {
		return nil, nil
	}

	return toTxResult(response.TxResponse)
}

// do executes a request and maps HTTP failures to package errors.
func (r *restClient) do(request *resty.Request, method, path string) error {
	var failure restFailure
	response, err := request.SetError(&failure).Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !response.IsError() {
		return nil
	}

	message := failure.Message
	if message == "" {
		message = strings.TrimSpace(response.String())
	}
	r.logger.Debug("request failed", "method", method, "path", path, "status", response.StatusCode(), "message", message)

	switch {
	case response.StatusCode() == http.StatusNotFound || strings.Contains(message, "not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case response.StatusCode() < http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrRequestRejected, message)
	default:
		return fmt.Errorf("%s %s returned %d: %s", method, path, response.StatusCode(), message)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func baseAccount(account *restAccount) *restAccount {
	switch {
	case account.BaseAccount != nil:
		return account.BaseAccount
	case account.BaseVestingAccount != nil && account.BaseVestingAccount.BaseAccount != nil:
		return account.BaseVestingAccount.BaseAccount
	default:
		return account
	}
}

func toTxResult(response *restTxResponse) (*TxResult, error) {
	height, err := parseInt(response.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: height %q", ErrUnexpectedResponse, response.Height)
	}
	gasWanted, err := parseInt(response.GasWanted)
	if err != nil {
		return nil, fmt.Errorf("%w: gas wanted %q", ErrUnexpectedResponse, response.GasWanted)
	}
	gasUsed, err := parseInt(response.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("%w: gas used %q", ErrUnexpectedResponse, response.GasUsed)
	}

	return &TxResult{
		TxHash:    response.TxHash,
		Code:      response.Code,
		Codespace: response.Codespace,
		RawLog:    response.RawLog,
		Height:    height,
		GasWanted: gasWanted,
		GasUsed:   gasUsed,
	}, nil
}

// Empty values are treated as zero.
func parseUint(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseUint(value, 10, 64)
}

func parseInt(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}
