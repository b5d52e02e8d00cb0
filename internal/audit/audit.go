// Package audit provides the append-only, risk-classified event ledger that
// every workflow stage writes to. Append is the single mutation; events are
// strictly ordered within a session by a monotonic sequence counter.
package audit

import (
	"context"

	"github.com/mkessler/mapgate-go/internal/models"
)

// WriteError reports a failed append. The orchestrator treats this as fatal
// for the in-flight transition: a transition whose audit record could not be
// written is not committed.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "audit ledger write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// Filter narrows a ledger query. Zero values match everything.
type Filter struct {
	Component string
	Action    string
	MinRisk   models.RiskLevel
	Limit     int
}

// Ledger is the audit trail contract. Implementations must keep per-session
// append order stable under concurrent writers from other sessions.
type Ledger interface {
	// Append assigns the event's sequence number and timestamp if unset and
	// persists it. Returns the assigned sequence number.
	Append(ctx context.Context, event models.AuditEvent) (int64, error)

	// Query returns the session's events matching the filter, ordered by
	// sequence number.
	Query(ctx context.Context, sessionID string, f Filter) ([]models.AuditEvent, error)
}

// matches applies a filter to one event.
func matches(e models.AuditEvent, f Filter) bool {
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.MinRisk != "" && !e.Risk.AtLeast(f.MinRisk) {
		return false
	}
	return true
}
