package cmd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/coding"
	"github.com/tessellated-io/haqq-delegator/config"
	"github.com/tessellated-io/haqq-delegator/cosmos/rpc"
	"github.com/tessellated-io/haqq-delegator/crypto"
	"github.com/tessellated-io/haqq-delegator/delegation"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testSigner   = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testSender   = "haqq1npvwllfr9dqr8erajqqr6s0vxnk2ak55th8cpv"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd := newRootCmd()
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.yaml")
}

func TestAddressCommand(t *testing.T) {
	out, err := execute(t, "address", testSigner, "--config", missingConfig(t))
	require.NoError(t, err)
	assert.Equal(t, testSender+"\n", out)
}

func TestAddressCommand_RejectsBadInput(t *testing.T) {
	_, err := execute(t, "address", "0xzz", "--config", missingConfig(t))
	require.ErrorIs(t, err, coding.ErrInvalidAddressFormat)
}

func TestChainsCommand(t *testing.T) {
	out, err := execute(t, "chains", "--config", missingConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "haqq_11235-1")
	assert.Contains(t, out, "haqq_54211-3")
	assert.Less(t, strings.Index(out, "haqq_11235-1"), strings.Index(out, "haqq_54211-3"))
}

func TestUnknownChain(t *testing.T) {
	_, err := execute(t, "address", testSigner, "--config", missingConfig(t), "--chain-id", "1")
	require.ErrorIs(t, err, chains.ErrUnknownChain)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HAQQ_TRANSPORT", "carrier-pigeon")

	_, err := execute(t, "chains", "--config", missingConfig(t))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFlagsWinOverConfigFile(t *testing.T) {
	path := missingConfig(t)
	require.NoError(t, os.WriteFile(path, []byte("chain_id: 1\n"), 0o600))

	_, err := execute(t, "address", testSigner, "--config", path)
	require.ErrorIs(t, err, chains.ErrUnknownChain)

	_, err = execute(t, "address", testSigner, "--config", path, "--chain-id", "11235")
	require.NoError(t, err)
}

func TestInitCommand(t *testing.T) {
	path := missingConfig(t)

	_, err := execute(t, "init", "--config", path)
	require.NoError(t, err)

	cfg, err := config.Load(path, rt.logger)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

// fakeNode serves the REST endpoints a delegation touches.
type fakeNode struct {
	pubKey     []byte
	broadcasts atomic.Int32
	code       uint32
	rawLog     string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/cosmos/auth/v1beta1/accounts/"+testSender:
		fmt.Fprintf(w, `{"account":{"@type":"/ethermint.types.v1.EthAccount","base_account":{"address":%q,"pub_key":{"@type":"/ethermint.crypto.v1.ethsecp256k1.PubKey","key":%q},"account_number":"5","sequence":"3"}}}`,
			testSender, base64.StdEncoding.EncodeToString(n.pubKey))
	case r.URL.Path == "/cosmos/tx/v1beta1/simulate":
		fmt.Fprint(w, `{"gas_info":{"gas_wanted":"14000000","gas_used":"100000"}}`)
	case r.URL.Path == "/cosmos/tx/v1beta1/txs" && r.Method == http.MethodPost:
		n.broadcasts.Add(1)
		response := map[string]interface{}{
			"tx_response": map[string]interface{}{
				"height":     "0",
				"txhash":     "ABCDEF",
				"code":       n.code,
				"raw_log":    n.rawLog,
				"gas_wanted": "100000",
				"gas_used":   "0",
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"code":5,"message":"not found"}`)
	}
}

func setupDelegation(t *testing.T, node *fakeNode) (string, string) {
	t.Helper()

	keyPair, err := crypto.NewEthermintKeyPairFromMnemonic(testMnemonic)
	require.NoError(t, err)
	node.pubKey = keyPair.GetPublicKey().Bytes()

	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	path := missingConfig(t)
	contents := fmt.Sprintf(`
chain_id: 11235
retry_attempts: 1
chains:
  - id: 11235
    cosmos_chain_id: haqq_11235-1
    rest_endpoint: %s
`, server.URL)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	validator, err := coding.ToNativeAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", chains.HaqqAccountPrefix+"valoper")
	require.NoError(t, err)

	t.Setenv("HAQQ_MNEMONIC", testMnemonic)
	return path, validator
}

func TestDelegateCommand(t *testing.T) {
	node := &fakeNode{rawLog: "[]"}
	path, validator := setupDelegation(t, node)

	out, err := execute(t, "delegate", "--config", path, "--validator", validator, "--amount", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "delegated 999999999999999230 aISLM to "+validator)
	assert.Contains(t, out, "fee: 770 aISLM (gas 100000)")
	assert.Contains(t, out, "tx hash: ABCDEF")
	assert.Equal(t, int32(1), node.broadcasts.Load())
}

func TestDelegateCommand_ChainRejection(t *testing.T) {
	node := &fakeNode{code: 5, rawLog: "insufficient funds: 1aISLM is smaller than 2aISLM"}
	path, validator := setupDelegation(t, node)

	_, err := execute(t, "delegate", "--config", path, "--validator", validator, "--amount", "1")
	require.ErrorIs(t, err, delegation.ErrBroadcast)
	assert.Equal(t, "broadcast failed: insufficient funds: 1aISLM is smaller than 2aISLM", err.Error())

	var rejection *rpc.ChainRejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, uint32(5), rejection.Code)
}

func TestDelegateCommand_WrongFrom(t *testing.T) {
	node := &fakeNode{}
	path, validator := setupDelegation(t, node)

	_, err := execute(t, "delegate", "--config", path, "--validator", validator, "--amount", "1", "--from", "0x0000000000000000000000000000000000000001")
	require.Error(t, err)
	assert.Zero(t, node.broadcasts.Load())
}

func TestDelegateCommand_BadAmount(t *testing.T) {
	node := &fakeNode{}
	path, validator := setupDelegation(t, node)

	_, err := execute(t, "delegate", "--config", path, "--validator", validator, "--amount", "lots")
	require.Error(t, err)
	assert.Zero(t, node.broadcasts.Load())
}
