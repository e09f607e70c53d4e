package chatlink

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes client errors.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// ErrorInvalidConfig is returned synchronously from Open when the room
	// id, token or base URL is missing or unusable. No state change, no
	// retry.
	ErrorInvalidConfig

	// ErrorProtocol marks a malformed or unrecognized inbound frame. The
	// frame is dropped and logged; connection state is unaffected.
	ErrorProtocol

	// ErrorConnection marks a handshake failure or abnormal close absorbed
	// by the reconnection policy.
	ErrorConnection

	// ErrorNotConnected marks an operation that requires an open session.
	ErrorNotConnected

	// ErrorReconnectExhausted is terminal: the reconnection policy ran out
	// of attempts. The session cannot self-recover; the caller must rebuild
	// the client.
	ErrorReconnectExhausted
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorProtocol:
		return "protocol_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorReconnectExhausted:
		return "reconnect_exhausted"
	default:
		return fmt.Sprintf("unknown_code_%d", int(e))
	}
}

// ChatlinkError is a structured error with code and context.
type ChatlinkError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatlinkError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatlinkError) Unwrap() error {
	return e.Wrapped
}

// Is matches on the error code so callers can compare with errors.Is.
func (e *ChatlinkError) Is(target error) bool {
	t, ok := target.(*ChatlinkError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a ChatlinkError with the given code and message.
func NewError(code ErrorCode, message string) *ChatlinkError {
	return &ChatlinkError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ChatlinkError.
func WrapError(code ErrorCode, message string, err error) *ChatlinkError {
	return &ChatlinkError{Code: code, Message: message, Wrapped: err}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *ChatlinkError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool { return hasCode(err, ErrorInvalidConfig) }

// IsExhausted reports whether err is the terminal reconnect-exhaustion error.
func IsExhausted(err error) bool { return hasCode(err, ErrorReconnectExhausted) }
