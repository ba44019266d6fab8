package tx

import (
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Sender is the signing metadata of the delegating account. It must be resolved from chain state for every
// attempt, since a stale sequence gets the transaction rejected.
type Sender struct {
	AccountAddress string
	Sequence       uint64
	AccountNumber  uint64
	PubKey         []byte
}

// Fee is a transaction fee in base denomination units. Amount and Gas are integer strings.
type Fee struct {
	Amount string `json:"amount"`
	Gas    string `json:"gas"`
	Denom  string `json:"denom"`
}

// Coin is an amount in base denomination units.
type Coin struct {
	Amount string `json:"amount"`
	Denom  string `json:"denom"`
}

// UnsignedTxEnvelope holds everything needed to get a wallet signature and reassemble the transaction afterwards.
type UnsignedTxEnvelope struct {
	// Payload presented to the wallet
	TypedData apitypes.TypedData

	// Legacy amino JSON sign doc that TypedData was derived from
	SignBytes []byte

	BodyBytes     []byte
	AuthInfoBytes []byte

	Fee      Fee
	Amount   Coin
	Sequence uint64
}

// SignedTxEnvelope is a transaction ready for simulation or broadcast.
type SignedTxEnvelope struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

// Bytes encodes the envelope as a protobuf TxRaw.
func (e *SignedTxEnvelope) Bytes() ([]byte, error) {
	raw := &txtypes.TxRaw{
		BodyBytes:     e.BodyBytes,
		AuthInfoBytes: e.AuthInfoBytes,
		Signatures:    e.Signatures,
	}
	return raw.Marshal()
}
