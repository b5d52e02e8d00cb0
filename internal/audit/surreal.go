package audit

import (
	"context"
	"time"

	"github.com/mkessler/mapgate-go/internal/db"
	"github.com/mkessler/mapgate-go/internal/models"
)

// SurrealLedger persists events to SurrealDB. Sequence numbers come from a
// server-side per-session counter, so appends are safe under concurrent
// writers across sessions.
type SurrealLedger struct {
	client *db.Client
}

// NewSurrealLedger wraps an existing database client.
func NewSurrealLedger(client *db.Client) *SurrealLedger {
	return &SurrealLedger{client: client}
}

// Append implements Ledger. Any storage failure becomes a WriteError; the
// caller must treat the enclosing transition as uncommitted.
func (l *SurrealLedger) Append(ctx context.Context, event models.AuditEvent) (int64, error) {
	seq, err := l.client.QueryNextAuditSequence(ctx, event.SessionID)
	if err != nil {
		return 0, &WriteError{Err: err}
	}

	event.Sequence = seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := l.client.QueryInsertAuditEvent(ctx, event); err != nil {
		return 0, &WriteError{Err: err}
	}
	return seq, nil
}

// Query implements Ledger. Component and action filters run server-side;
// risk filtering is applied here.
func (l *SurrealLedger) Query(ctx context.Context, sessionID string, f Filter) ([]models.AuditEvent, error) {
	// Fetch unbounded when a risk filter applies, then trim after filtering.
	limit := f.Limit
	if f.MinRisk != "" {
		limit = 0
	}

	rows, err := l.client.QueryAuditEvents(ctx, sessionID, f.Component, f.Action, limit)
	if err != nil {
		return nil, err
	}

	var out []models.AuditEvent
	for _, r := range rows {
		e := models.AuditEvent{
			Sequence:  r.Sequence,
			Timestamp: r.Timestamp,
			SessionID: r.SessionID,
			Component: r.Component,
			Action:    r.Action,
			Risk:      models.RiskLevel(r.Risk),
			Context:   r.Context,
		}
		if !matches(e, f) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}
