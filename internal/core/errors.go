package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("task not found")
	ErrUnknownTask    = errors.New("task is not in the current day")
	ErrZeroDate       = errors.New("task date is zero")
	ErrDateOutOfRange = errors.New("task date is outside years 1-9999")
)

// StoreError reports a failed store operation. Prior durable state is left
// unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
