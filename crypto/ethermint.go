package crypto

import (
	"errors"
	"fmt"
	"strings"

	btcec "github.com/btcsuite/btcd/btcec/v2"
	bip39 "github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/common"
	"github.com/evmos/evmos/v14/crypto/hd"
	"golang.org/x/crypto/sha3"

	"github.com/cosmos/cosmos-sdk/crypto/keyring"
	cryptotypes "github.com/cosmos/cosmos-sdk/crypto/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/bech32"
)

// EthermintHDPath is the BIP-44 path of the first Ethereum account (coin type 60).
const EthermintHDPath = "m/44'/60'/0'/0/0"

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

type EthermintKeyPair struct {
	Public  cryptotypes.PubKey
	Private cryptotypes.PrivKey
}

var _ BytesSigner = (*EthermintKeyPair)(nil)

// NewEthermintKeyPairFromMnemonic returns an eth_secp256k1 key pair derived from the given mnemonic
func NewEthermintKeyPairFromMnemonic(mnemonic string) (*EthermintKeyPair, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	// create master key and derive first key for keyring
	algo := hd.EthSecp256k1
	derivedPriv, err := algo.Derive()(mnemonic, keyring.DefaultBIP39Passphrase, EthermintHDPath)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	privKey := algo.Generate()(derivedPriv)

	return &EthermintKeyPair{
		Public:  privKey.PubKey(),
		Private: privKey,
	}, nil
}

// addressBytes is the Ethereum address of the key: the last 20 bytes of the keccak hash of the uncompressed key.
func (e *EthermintKeyPair) addressBytes() ([]byte, error) {
	parsed, err := btcec.ParsePubKey(e.Public.Bytes())
	if err != nil {
		return nil, err
	}
	decompressedPublicKey := parsed.SerializeUncompressed()

	hash := sha3.NewLegacyKeccak256()
	hash.Write(decompressedPublicKey[1:]) // Remove the prefix byte from the uncompressed public key
	return hash.Sum(nil)[12:], nil
}

func (e *EthermintKeyPair) GetAddress(prefix string) (string, error) {
	addressBytes, err := e.addressBytes()
	if err != nil {
		return "", err
	}

	return bech32.ConvertAndEncode(prefix, sdk.AccAddress(addressBytes))
}

// EthAddress returns the checksummed 0x address of the key.
func (e *EthermintKeyPair) EthAddress() (string, error) {
	addressBytes, err := e.addressBytes()
	if err != nil {
		return "", err
	}

	return common.BytesToAddress(addressBytes).Hex(), nil
}

// SignBytes produces a 65 byte recoverable signature. Input that is not a 32 byte digest is keccak hashed first.
func (e *EthermintKeyPair) SignBytes(
	bytesToSign []byte,
) ([]byte, error) {
	return e.Private.Sign(bytesToSign)
}

func (e *EthermintKeyPair) GetPublicKey() cryptotypes.PubKey {
	return e.Public
}
