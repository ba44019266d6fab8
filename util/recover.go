package util

import (
	"errors"
	"fmt"
)

// ErrorFromPanic turns a value returned by recover() into an error.
func ErrorFromPanic(recovered interface{}) error {
	// Attempt to coerce into error
	err, ok := recovered.(error)
	if ok {
		return err
	}

	// Otherwise attempt to coerce into string
	stringifiedErr, ok := recovered.(string)
	if ok {
		return errors.New(stringifiedErr)
	}

	// Otherwise, just ditch with a generic error.
	return fmt.Errorf("recovered from a panic with a %T: %v", recovered, recovered)
}
