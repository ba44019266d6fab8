package tx

import (
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/tessellated-io/haqq-delegator/chains"
	"github.com/tessellated-io/haqq-delegator/log"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/client"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/module"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/cosmos/cosmos-sdk/types/tx/signing"
	"github.com/cosmos/cosmos-sdk/x/auth"
	authsigning "github.com/cosmos/cosmos-sdk/x/auth/signing"
	"github.com/cosmos/cosmos-sdk/x/bank"
	"github.com/cosmos/cosmos-sdk/x/staking"
	stakingtypes "github.com/cosmos/cosmos-sdk/x/staking/types"
	"github.com/evmos/evmos/v14/crypto/ethsecp256k1"
	"github.com/evmos/evmos/v14/encoding"
	"github.com/evmos/evmos/v14/ethereum/eip712"
)

// Compressed secp256k1 public key length
const compressedPubKeyLength = 33

// The wallet signs typed data derived from the amino JSON sign doc. Evmos nodes verify eth_secp256k1 signatures
// in this mode against the same EIP-712 payload.
const signMode = signing.SignMode_SIGN_MODE_LEGACY_AMINO_JSON

// EnvelopeBuilder creates unsigned delegation transactions.
type EnvelopeBuilder interface {
	BuildUnsigned(chain chains.CosmosChain, sender *Sender, validatorAddress string, amount Coin, fee Fee, memo string) (*UnsignedTxEnvelope, error)
}

var (
	encodingOnce      sync.Once
	txConfig          client.TxConfig
	interfaceRegistry codectypes.InterfaceRegistry
)

// setupEncoding registers the modules needed for delegation with the global EIP-712 encoder and configures
// account prefixes, since message validation parses bech32 addresses through the global sdk config.
func setupEncoding(accountPrefix string) {
	encodingOnce.Do(func() {
		encodingConfig := encoding.MakeConfig(module.NewBasicManager(
			auth.AppModuleBasic{},
			bank.AppModuleBasic{},
			staking.AppModuleBasic{},
		))
		eip712.SetEncodingConfig(encodingConfig)

		txConfig = encodingConfig.TxConfig
		interfaceRegistry = encodingConfig.InterfaceRegistry

		sdkConfig := sdk.GetConfig()
		sdkConfig.SetBech32PrefixForAccount(accountPrefix, accountPrefix+"pub")
		sdkConfig.SetBech32PrefixForValidator(accountPrefix+"valoper", accountPrefix+"valoperpub")
		sdkConfig.SetBech32PrefixForConsensusNode(accountPrefix+"valcons", accountPrefix+"valconspub")
	})
}

// InterfaceRegistry returns the registry that knows about Ethermint accounts and keys.
func InterfaceRegistry() codectypes.InterfaceRegistry {
	setupEncoding(chains.HaqqAccountPrefix)
	return interfaceRegistry
}

// TxConfig returns the tx config used to build envelopes.
func TxConfig() client.TxConfig {
	setupEncoding(chains.HaqqAccountPrefix)
	return txConfig
}

// builder is the default implementation of the EnvelopeBuilder interface
type builder struct {
	txConfig client.TxConfig
	logger   *log.Logger
}

// Assert type conformance
var _ EnvelopeBuilder = (*builder)(nil)

func NewBuilder(accountPrefix string, logger *log.Logger) EnvelopeBuilder {
	setupEncoding(accountPrefix)
	if logger == nil {
		logger = log.Default()
	}

	return &builder{
		txConfig: txConfig,
		logger:   logger.ApplyPrefix("🧱"),
	}
}

// BuildUnsigned creates a MsgDelegate transaction with a placeholder signature, and derives the typed data the
// wallet needs to sign for it.
func (b *builder) BuildUnsigned(chain chains.CosmosChain, sender *Sender, validatorAddress string, amount Coin, fee Fee, memo string) (*UnsignedTxEnvelope, error) {
	if len(sender.PubKey) != compressedPubKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, compressedPubKeyLength, len(sender.PubKey))
	}

	delegation, ok := sdkmath.NewIntFromString(amount.Amount)
	if !ok || !delegation.IsPositive() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount.Amount)
	}
	feeAmount, ok := sdkmath.NewIntFromString(fee.Amount)
	if !ok || feeAmount.IsNegative() {
		return nil, fmt.Errorf("%w: fee amount %q", ErrInvalidAmount, fee.Amount)
	}
	gasLimit, err := strconv.ParseUint(fee.Gas, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGas, fee.Gas)
	}

	msg := &stakingtypes.MsgDelegate{
		DelegatorAddress: sender.AccountAddress,
		ValidatorAddress: validatorAddress,
		Amount:           sdk.NewCoin(amount.Denom, delegation),
	}

	txb := b.txConfig.NewTxBuilder()
	if err := txb.SetMsgs(msg); err != nil {
		return nil, err
	}
	txb.SetMemo(memo)
	txb.SetGasLimit(gasLimit)
	txb.SetFeeAmount(sdk.NewCoins(sdk.NewCoin(fee.Denom, feeAmount)))

	pubKey := &ethsecp256k1.PubKey{Key: sender.PubKey}
	placeholder := signing.SignatureV2{
		PubKey: pubKey,
		Data: &signing.SingleSignatureData{
			SignMode:  signMode,
			Signature: nil,
		},
		Sequence: sender.Sequence,
	}
	if err := txb.SetSignatures(placeholder); err != nil {
		return nil, err
	}

	signerData := authsigning.SignerData{
		Address:       sender.AccountAddress,
		ChainID:       chain.CosmosChainID,
		AccountNumber: sender.AccountNumber,
		Sequence:      sender.Sequence,
		PubKey:        pubKey,
	}
	signBytes, err := b.txConfig.SignModeHandler().GetSignBytes(signMode, signerData, txb.GetTx())
	if err != nil {
		return nil, err
	}

	typedData, err := eip712.GetEIP712TypedDataForMsg(signBytes)
	if err != nil {
		return nil, fmt.Errorf("deriving typed data: %w", err)
	}
	if typedData.Domain.ChainId == nil || (*big.Int)(typedData.Domain.ChainId).Cmp(new(big.Int).SetUint64(chain.ChainID)) != 0 {
		return nil, fmt.Errorf("%w: expected %d", ErrChainMismatch, chain.ChainID)
	}

	// Split the encoded tx so the signature can be swapped in later
	txBytes, err := b.txConfig.TxEncoder()(txb.GetTx())
	if err != nil {
		return nil, err
	}
	var raw txtypes.TxRaw
	if err := raw.Unmarshal(txBytes); err != nil {
		return nil, err
	}

	b.logger.Debug("built unsigned delegation", "chain_id", chain.CosmosChainID, "sequence", sender.Sequence, "gas", fee.Gas, "fee", fee.Amount, "amount", amount.Amount)

	return &UnsignedTxEnvelope{
		TypedData:     typedData,
		SignBytes:     signBytes,
		BodyBytes:     raw.BodyBytes,
		AuthInfoBytes: raw.AuthInfoBytes,
		Fee:           fee,
		Amount:        amount,
		Sequence:      sender.Sequence,
	}, nil
}

// Assemble attaches a wallet signature to an unsigned envelope.
func Assemble(unsigned *UnsignedTxEnvelope, signature []byte) (*SignedTxEnvelope, error) {
	if len(unsigned.BodyBytes) == 0 || len(unsigned.AuthInfoBytes) == 0 {
		return nil, ErrEnvelopeIncomplete
	}
	if len(signature) == 0 {
		return nil, ErrMissingSignature
	}

	return &SignedTxEnvelope{
		BodyBytes:     unsigned.BodyBytes,
		AuthInfoBytes: unsigned.AuthInfoBytes,
		Signatures:    [][]byte{signature},
	}, nil
}
