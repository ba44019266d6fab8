package tx

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidGas         = errors.New("invalid gas")
	ErrInvalidPublicKey   = errors.New("invalid public key")
	ErrChainMismatch      = errors.New("typed data chain id does not match target chain")
	ErrMissingSignature   = errors.New("missing signature")
	ErrEnvelopeIncomplete = errors.New("unsigned envelope is missing body or auth info")
)
