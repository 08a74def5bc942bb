// Package errs defines the error taxonomy shared by the ledger, the portfolio
// engine and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The HTTP layer maps kinds to status codes.
type Kind string

const (
	InvalidInput       Kind = "invalid_input"
	NonIntegerShares   Kind = "non_integer_shares"
	NonPositiveShares  Kind = "non_positive_shares"
	UnknownSymbol      Kind = "unknown_symbol"
	InsufficientFunds  Kind = "insufficient_funds"
	NoPosition         Kind = "no_position"
	InsufficientShares Kind = "insufficient_shares"
	QuoteUnavailable   Kind = "quote_unavailable"
	DuplicateUsername  Kind = "duplicate_username"
	AuthFailure        Kind = "auth_failure"
	StorageUnavailable Kind = "storage_unavailable"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidInput       = &Error{Kind: InvalidInput}
	ErrNonIntegerShares   = &Error{Kind: NonIntegerShares}
	ErrNonPositiveShares  = &Error{Kind: NonPositiveShares}
	ErrUnknownSymbol      = &Error{Kind: UnknownSymbol}
	ErrInsufficientFunds  = &Error{Kind: InsufficientFunds}
	ErrNoPosition         = &Error{Kind: NoPosition}
	ErrInsufficientShares = &Error{Kind: InsufficientShares}
	ErrQuoteUnavailable   = &Error{Kind: QuoteUnavailable}
	ErrDuplicateUsername  = &Error{Kind: DuplicateUsername}
	ErrAuthFailure        = &Error{Kind: AuthFailure}
	ErrStorageUnavailable = &Error{Kind: StorageUnavailable}
)

// Error is a classified failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it reachable through errors.Unwrap.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the message to show a user for err.
// Unclassified errors get a generic message so internals do not leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}

// Fatal reports whether err must not be retried or masked.
func Fatal(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
