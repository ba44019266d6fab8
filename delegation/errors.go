package delegation

import (
	"errors"
	"fmt"
)

// Failure kinds. Match them with errors.Is on the error returned by Delegate.
var (
	ErrPrecondition     = errors.New("precondition failed")
	ErrSenderResolution = errors.New("sender resolution failed")
	ErrSimulation       = errors.New("simulation failed")
	ErrBuild            = errors.New("build failed")
	ErrSigning          = errors.New("signing failed")
	ErrBroadcast        = errors.New("broadcast failed")
)

// Causes reported under the failure kinds above.
var (
	ErrMissingSender    = errors.New("no sender address")
	ErrMissingSigner    = errors.New("no wallet signing address")
	ErrMissingValidator = errors.New("no validator selected")
	ErrMissingChain     = errors.New("no chain configuration")
	ErrNonPositive      = errors.New("amount must be positive")
	ErrStaleSequence    = errors.New("chain reported a sequence that was already broadcast, wait for the node to catch up")
)

// StageError is the first failure of an attempt, with the state it happened in.
type StageError struct {
	Stage State
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
