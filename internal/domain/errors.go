package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies factory-level errors.
type ErrorCode int

const (
	// CodeGood indicates success.
	CodeGood ErrorCode = iota
	// CodeDiscoveryMiss indicates a server URI never observed by discovery.
	CodeDiscoveryMiss
	// CodeConnectionError indicates a session was acquired but not connected.
	CodeConnectionError
	// CodeUnsupported indicates an asynchronous request fanned out across
	// multiple sessions, which the factory cannot aggregate.
	CodeUnsupported
	// CodeReleaseUnderflow indicates a release on an already-idle session.
	CodeReleaseUnderflow
	// CodeUnknownConnectionID indicates a manual operation on a missing session.
	CodeUnknownConnectionID
	// CodeUnknownTransaction indicates a completion with no registry binding.
	// Soft: logged, never returned to a caller.
	CodeUnknownTransaction
	// CodeInternal is a catch-all for unexpected internal failures.
	CodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case CodeGood:
		return "Good"
	case CodeDiscoveryMiss:
		return "DiscoveryMiss"
	case CodeConnectionError:
		return "ConnectionError"
	case CodeUnsupported:
		return "Unsupported"
	case CodeReleaseUnderflow:
		return "ReleaseUnderflow"
	case CodeUnknownConnectionID:
		return "UnknownConnectionId"
	case CodeUnknownTransaction:
		return "UnknownTransaction"
	default:
		return "Internal"
	}
}

// Error is a factory-level error carrying a classifying code.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an *Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewDiscoveryMissError reports that serverURI was never discovered.
func NewDiscoveryMissError(serverURI string) *Error {
	return NewError(CodeDiscoveryMiss, fmt.Sprintf("server uri %q not discovered", serverURI))
}

// NewConnectionError reports that a session is acquired but not connected.
func NewConnectionError(serverURI string) *Error {
	return NewError(CodeConnectionError, fmt.Sprintf("session for %q is not connected", serverURI))
}

// ErrUnsupportedFanOut is returned when an asynchronous service fans out
// across more than one session.
var ErrUnsupportedFanOut = NewError(CodeUnsupported, "asynchronous request cannot fan out across multiple sessions")

// ErrReleaseUnderflow is returned by SessionTable.Release when a session's
// activity count is already zero. It is a programmer error, surfaced
// rather than silently ignored or wrapped to a negative count.
var ErrReleaseUnderflow = NewError(CodeReleaseUnderflow, "release called on a session with zero activity")

// NewUnknownConnectionIDError reports a manual operation on a missing session.
func NewUnknownConnectionIDError(id ConnectionID) *Error {
	return NewError(CodeUnknownConnectionID, fmt.Sprintf("no session with connection id %d", id))
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Wrap annotates err with a message, preserving its *Error code if it
// carries one. Returns nil if err is nil.
//
// This differs from the teacher's domain.Wrap (see DESIGN.md): that
// helper compares a type-asserted interface to a freshly zeroed pointer
// of the same type with ==, which is always false, so it never detects
// an existing *MCPError and always downgrades to a generic internal
// error. Using errors.As here keeps the original code on the wrapped
// error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return NewError(e.Code, fmt.Sprintf("%s: %s", message, e.Message))
	}
	return NewError(CodeInternal, fmt.Sprintf("%s: %v", message, err))
}
