package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations that need a wallet session.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrUnsupported marks operations the connected wallet type lacks.
	ErrUnsupported = errors.New("not supported for this wallet type")
	// ErrSessionLost marks transport failures after which the session is unusable.
	ErrSessionLost = errors.New("wallet session lost")
)

type unsupportedError struct {
	op string
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("%s %s", e.op, ErrUnsupported.Error())
}

func (e *unsupportedError) Unwrap() error {
	return ErrUnsupported
}

func unsupported(op string) error {
	return &unsupportedError{op: op}
}

// guard converts a panic raised by a wallet transport into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("wallet failure: %v", r)
		}
	}()
	return fn()
}
