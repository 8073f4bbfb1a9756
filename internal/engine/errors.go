package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/bryanzk/MarketMakerDemo-sub001/internal/exchange"
)

// Severity grades an alert.
type Severity string

const (
	// SeverityWarning marks a transient or recoverable condition.
	SeverityWarning Severity = "warning"
	// SeverityError marks a condition that blocks quoting until resolved.
	SeverityError Severity = "error"
)

// Alert is the single most recent actionable condition on a unit. At most one
// is active; it is replaced by newer failures and cleared on the next
// successful parameter apply.
type Alert struct {
	Severity   Severity
	Message    string
	Suggestion string
}

// ErrorRecord is one caught failure, appended to the unit-local and global
// bounded histories. TraceID correlates the record across logs and alerts.
type ErrorRecord struct {
	Timestamp  time.Time
	Kind       exchange.ErrorKind
	Message    string
	Symbol     string
	StrategyID string
	TraceID    string
}

func newErrorRecord(kind exchange.ErrorKind, message, symbol, strategyID string) ErrorRecord {
	return ErrorRecord{
		Timestamp:  time.Now(),
		Kind:       kind,
		Message:    message,
		Symbol:     symbol,
		StrategyID: strategyID,
		TraceID:    uuid.NewString(),
	}
}

// alertFor maps an execution error kind to the alert shown for it.
// Insufficient funds blocks quoting outright; everything else heals on the
// next tick and only warns.
func alertFor(kind exchange.ErrorKind, message string) Alert {
	switch kind {
	case exchange.KindInsufficientFunds:
		return Alert{
			Severity:   SeverityError,
			Message:    message,
			Suggestion: "Deposit margin or reduce the order quantity",
		}
	case exchange.KindInvalidOrder:
		return Alert{
			Severity:   SeverityWarning,
			Message:    message,
			Suggestion: "Check price and quantity against the instrument filters",
		}
	case exchange.KindRateLimited:
		return Alert{
			Severity:   SeverityWarning,
			Message:    message,
			Suggestion: "Venue is throttling; the next cycle retries naturally",
		}
	case exchange.KindNetwork:
		return Alert{
			Severity:   SeverityWarning,
			Message:    message,
			Suggestion: "Check connectivity to the venue",
		}
	case exchange.KindExchange:
		return Alert{
			Severity:   SeverityWarning,
			Message:    message,
			Suggestion: "Venue rejected the request; inspect the error history",
		}
	default:
		return Alert{
			Severity:   SeverityWarning,
			Message:    message,
			Suggestion: "Inspect the error history for details",
		}
	}
}
