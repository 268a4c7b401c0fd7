package interfaces

import (
	"errors"
	"fmt"
)

// Error categories. Use errors.Is to classify an error returned by a
// component.
var (
	// ErrAuthorization means the caller lacks the required role.
	ErrAuthorization = errors.New("authorization error")

	// ErrNotFound means a referenced id or address is unknown.
	ErrNotFound = errors.New("not found")

	// ErrValidation covers duplicate keys, bound violations, double
	// initialization and double revocation.
	ErrValidation = errors.New("validation error")

	// ErrState means the operation is invalid for the current lifecycle phase.
	ErrState = errors.New("state error")
)

// LedgerError is a categorized component error.
type LedgerError struct {
	Kind error
	Msg  string
}

func (e *LedgerError) Error() string { return e.Msg }

func (e *LedgerError) Unwrap() error { return e.Kind }

func newLedgerError(kind error, format string, args ...any) error {
	return &LedgerError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...any) error {
	return newLedgerError(ErrAuthorization, format, args...)
}

func NotFoundError(format string, args ...any) error {
	return newLedgerError(ErrNotFound, format, args...)
}

func ValidationError(format string, args ...any) error {
	return newLedgerError(ErrValidation, format, args...)
}

func StateError(format string, args ...any) error {
	return newLedgerError(ErrState, format, args...)
}

// ErrorKind returns the category of err, or nil if err is not categorized.
func ErrorKind(err error) error {
	for _, kind := range []error{ErrAuthorization, ErrNotFound, ErrValidation, ErrState} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
