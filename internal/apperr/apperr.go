package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer. Everything the
// engines report to callers is one of these; transient infrastructure
// failures (cache, click reporter) are swallowed at their boundary and
// never reach here.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation    // malformed input, e.g. a bad custom code
	KindUnprocessable // well-formed but unacceptable, e.g. expiry out of range
	KindConflict
	KindNotFound
	KindGone
	KindForbidden
	KindUnauthorized
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is match any *Error with the same Kind, so callers
// can compare against the bare sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrValidation    = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrUnprocessable = &Error{Kind: KindUnprocessable, Message: "unprocessable input"}
	ErrConflict      = &Error{Kind: KindConflict, Message: "conflict"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
	ErrGone          = &Error{Kind: KindGone, Message: "gone"}
	ErrForbidden     = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInternal      = &Error{Kind: KindInternal, Message: "internal error"}
)

// KindOf extracts the kind of err, defaulting to KindInternal for
// anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
