package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes execution failures for alerting and metrics.
type ErrorKind string

const (
	// KindInsufficientFunds means the account cannot margin the order.
	KindInsufficientFunds ErrorKind = "insufficient_funds"
	// KindInvalidOrder means the venue refused the order parameters.
	KindInvalidOrder ErrorKind = "invalid_order"
	// KindRateLimited means the venue throttled the call; the next tick is
	// the natural backoff.
	KindRateLimited ErrorKind = "rate_limited"
	// KindNetwork covers transport failures.
	KindNetwork ErrorKind = "network_error"
	// KindExchange covers venue-side errors that are none of the above.
	KindExchange ErrorKind = "exchange_error"
	// KindUnknown is the fallback for unclassified failures.
	KindUnknown ErrorKind = "unknown"
)

// ExecutionError is a classified venue failure.
type ExecutionError struct {
	Kind    ErrorKind
	Symbol  string
	Message string
	Err     error
}

// Error renders kind and message.
func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecutionError builds a classified failure for the given instrument.
func NewExecutionError(kind ErrorKind, symbol, message string) *ExecutionError {
	return &ExecutionError{Kind: kind, Symbol: symbol, Message: message}
}

// Classify extracts the error kind, defaulting to KindUnknown for errors that
// did not originate from a venue client.
func Classify(err error) ErrorKind {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	return KindUnknown
}
