package remote

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrProviderUnavailable is returned when a remote signer is built
	// without a usable provider.
	ErrProviderUnavailable = errors.New("remote provider unavailable")

	// ErrSyncAccessUnsupported is the error variant of the synchronous
	// identity accessors. Use Accounts or Network instead.
	ErrSyncAccessUnsupported = errors.New("synchronous access is not " +
		"supported by the remote signer")

	// ErrNoAccounts is the kind of the error returned when the provider
	// has no connected accounts.
	ErrNoAccounts = errors.New("no accounts connected")

	// ErrProviderOperation is the kind of every failed provider call.
	ErrProviderOperation = errors.New("provider operation failed")
)

// errorCoder is implemented by provider errors that carry a numeric code.
type errorCoder interface {
	ErrorCode() int
}

// Error is the single error shape returned by remote signer operations. It
// keeps the provider's message and code but not the provider's error value.
type Error struct {
	// Op is the provider operation that failed.
	Op string

	// Message is the provider's error text.
	Message string

	// Code is the provider's numeric error code, if it supplied one.
	Code fn.Option[int]

	kind error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.kind, e.Op, e.Message)
	e.Code.WhenSome(func(code int) {
		msg = fmt.Sprintf("%s (code %d)", msg, code)
	})

	return msg
}

// Unwrap returns the error kind, ErrProviderOperation or ErrNoAccounts.
func (e *Error) Unwrap() error {
	return e.kind
}

// wrapErr converts any failure of op into an *Error.
func wrapErr(op string, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	wrapped := &Error{
		Op:      op,
		Message: err.Error(),
		kind:    ErrProviderOperation,
	}

	var coder errorCoder
	if errors.As(err, &coder) {
		wrapped.Code = fn.Some(coder.ErrorCode())
	}

	return wrapped
}
