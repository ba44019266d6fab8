package rpc_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tessellated-io/haqq-delegator/coding"
	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHexAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

var testPubKey = append([]byte{0x02}, bytes.Repeat([]byte{0x01}, 32)...)

func nativeAddress(t *testing.T) string {
	t.Helper()
	address, err := coding.ToNativeAddress(testHexAddress, "haqq")
	require.NoError(t, err)
	return address
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func newRestClient(t *testing.T, handler http.HandlerFunc) rpc.ChainDataService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return rpc.NewRestClient(server.URL+"/", "haqq", 5*time.Second, log.Discard())
}

func ethAccountResponse(address string, pubKey []byte) map[string]any {
	baseAccount := map[string]any{
		"address":        address,
		"account_number": "42",
		"sequence":       "7",
		"pub_key":        nil,
	}
	if pubKey != nil {
		baseAccount["pub_key"] = map[string]any{
			"@type": "/ethermint.crypto.v1.ethsecp256k1.PubKey",
			"key":   base64.StdEncoding.EncodeToString(pubKey),
		}
	}

	return map[string]any{
		"account": map[string]any{
			"@type":        "/ethermint.types.v1.EthAccount",
			"base_account": baseAccount,
			"code_hash":    "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
	}
}

func TestRestClient_GetAccountInfo(t *testing.T) {
	address := nativeAddress(t)
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/auth/v1beta1/accounts/"+address, r.URL.Path)
		writeJSON(t, w, http.StatusOK, ethAccountResponse(address, testPubKey))
	})

	info, err := client.GetAccountInfo(context.Background(), address)
	require.NoError(t, err)
	require.Equal(t, &rpc.AccountInfo{
		Address:       address,
		AccountNumber: 42,
		Sequence:      7,
		PubKey:        testPubKey,
	}, info)
}

func TestRestClient_GetAccountInfo_BaseAccount(t *testing.T) {
	address := nativeAddress(t)
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"account": map[string]any{
				"@type":          "/cosmos.auth.v1beta1.BaseAccount",
				"address":        address,
				"account_number": "3",
				"sequence":       "0",
			},
		})
	})

	info, err := client.GetAccountInfo(context.Background(), address)
	require.NoError(t, err)
	require.Equal(t, uint64(3), info.AccountNumber)
	require.Equal(t, uint64(0), info.Sequence)
	require.Empty(t, info.PubKey)
}

func TestRestClient_GetAccountInfo_NotFound(t *testing.T) {
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{
			"code":    5,
			"message": "rpc error: code = NotFound desc = account not found: key not found",
			"details": []any{},
		})
	})

	_, err := client.GetAccountInfo(context.Background(), nativeAddress(t))
	require.ErrorIs(t, err, rpc.ErrAccountNotFound)
}

func TestRestClient_GetPublicKey(t *testing.T) {
	address := nativeAddress(t)
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/auth/v1beta1/accounts/"+address, r.URL.Path)
		writeJSON(t, w, http.StatusOK, ethAccountResponse(address, testPubKey))
	})

	pubKey, err := client.GetPublicKey(context.Background(), testHexAddress)
	require.NoError(t, err)
	require.Equal(t, testPubKey, pubKey)
}

func TestRestClient_GetPublicKey_NoKeyOnChain(t *testing.T) {
	address := nativeAddress(t)
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, ethAccountResponse(address, nil))
	})

	_, err := client.GetPublicKey(context.Background(), testHexAddress)
	require.ErrorIs(t, err, rpc.ErrNoPublicKey)
}

func TestRestClient_GetPublicKey_InvalidAddress(t *testing.T) {
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.GetPublicKey(context.Background(), "0xnothex")
	require.ErrorIs(t, err, coding.ErrInvalidAddressFormat)
}

func TestRestClient_ListValidators_Paginates(t *testing.T) {
	requests := 0
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/staking/v1beta1/validators", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("pagination.limit"))
		requests++

		switch r.URL.Query().Get("pagination.key") {
		case "":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"validators": []any{
					map[string]any{
						"operator_address": "haqqvaloper1a",
						"jailed":           false,
						"status":           "BOND_STATUS_BONDED",
						"tokens":           "1000",
						"description":      map[string]any{"moniker": "alpha"},
						"commission":       map[string]any{"commission_rates": map[string]any{"rate": "0.050000000000000000"}},
					},
				},
				"pagination": map[string]any{"next_key": "bmV4dA==", "total": "2"},
			})
		case "bmV4dA==":
			writeJSON(t, w, http.StatusOK, map[string]any{
				"validators": []any{
					map[string]any{
						"operator_address": "haqqvaloper1b",
						"jailed":           true,
						"status":           "BOND_STATUS_UNBONDED",
						"tokens":           "5",
						"description":      map[string]any{"moniker": "beta"},
					},
				},
				"pagination": map[string]any{"next_key": nil, "total": "0"},
			})
		default:
			t.Errorf("unexpected page key %q", r.URL.Query().Get("pagination.key"))
		}
	})

	validators, err := client.ListValidators(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, requests)
	require.Equal(t, []rpc.Validator{
		{OperatorAddress: "haqqvaloper1a", Moniker: "alpha", Status: "BOND_STATUS_BONDED", Tokens: "1000", CommissionRate: "0.050000000000000000"},
		{OperatorAddress: "haqqvaloper1b", Moniker: "beta", Status: "BOND_STATUS_UNBONDED", Jailed: true, Tokens: "5"},
	}, validators)
	require.True(t, validators[0].IsBonded())
	require.False(t, validators[1].IsBonded())
}

func TestRestClient_Simulate(t *testing.T) {
	txBytes := []byte("signed tx")
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cosmos/tx/v1beta1/simulate", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, base64.StdEncoding.EncodeToString(txBytes), body["tx_bytes"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"gas_info": map[string]any{"gas_wanted": "14000000", "gas_used": "100000"},
			"result":   map[string]any{"log": ""},
		})
	})

	result, err := client.Simulate(context.Background(), txBytes)
	require.NoError(t, err)
	require.Equal(t, &rpc.SimulationResult{GasWanted: 14000000, GasUsed: 100000}, result)
}

func TestRestClient_Simulate_Failures(t *testing.T) {
	status := http.StatusBadRequest
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, status, map[string]any{"code": 3, "message": "invalid request"})
	})

	_, err := client.Simulate(context.Background(), []byte("tx"))
	require.ErrorIs(t, err, rpc.ErrRequestRejected)
	require.ErrorContains(t, err, "invalid request")

	status = http.StatusInternalServerError
	_, err = client.Simulate(context.Background(), []byte("tx"))
	require.Error(t, err)
	require.False(t, errors.Is(err, rpc.ErrRequestRejected))
	require.ErrorContains(t, err, "500")
}

func TestRestClient_Broadcast(t *testing.T) {
	rawLog := "insufficient fees; got: 10aISLM required: 770aISLM: insufficient fee"
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/tx/v1beta1/txs", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BROADCAST_MODE_SYNC", body["mode"])

		writeJSON(t, w, http.StatusOK, map[string]any{
			"tx_response": map[string]any{
				"height":     "0",
				"txhash":     "ABCDEF",
				"codespace":  "sdk",
				"code":       13,
				"raw_log":    rawLog,
				"gas_wanted": "100000",
				"gas_used":   "0",
			},
		})
	})

	result, err := client.Broadcast(context.Background(), []byte("tx"))
	require.NoError(t, err)
	require.Equal(t, "ABCDEF", result.TxHash)
	require.Equal(t, uint32(13), result.Code)
	require.Equal(t, int64(100000), result.GasWanted)

	rejection := result.Rejection()
	require.Error(t, rejection)
	require.Equal(t, rawLog, rejection.Error())

	var chainRejection *rpc.ChainRejection
	require.ErrorAs(t, rejection, &chainRejection)
	require.True(t, chainRejection.IsGasRelated())
}

func TestRestClient_GetTx(t *testing.T) {
	found := false
	client := newRestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/tx/v1beta1/txs/ABCDEF", r.URL.Path)
		if !found {
			writeJSON(t, w, http.StatusNotFound, map[string]any{"code": 5, "message": "tx not found: ABCDEF"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"tx": map[string]any{},
			"tx_response": map[string]any{
				"height": "1234",
				"txhash": "ABCDEF",
				"code":   0,
			},
		})
	})

	result, err := client.GetTx(context.Background(), "ABCDEF")
	require.NoError(t, err)
	require.Nil(t, result)

	found = true
	result, err = client.GetTx(context.Background(), "ABCDEF")
	require.NoError(t, err)
	require.Equal(t, int64(1234), result.Height)
	require.NoError(t, result.Rejection())
}

func TestRestClient_NilLoggerFallsBackToDefault(t *testing.T) {
	address := nativeAddress(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, ethAccountResponse(address, testPubKey))
	}))
	t.Cleanup(server.Close)

	client := rpc.NewRestClient(server.URL, "haqq", 5*time.Second, nil)
	info, err := client.GetAccountInfo(context.Background(), address)
	require.NoError(t, err)
	require.Equal(t, uint64(7), info.Sequence)
}
