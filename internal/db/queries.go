package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/mkessler/mapgate-go/internal/models"
)

// AuditRow is the stored shape of an audit event.
type AuditRow struct {
	SessionID string         `json:"session_id"`
	Sequence  int64          `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	Action    string         `json:"action"`
	Risk      string         `json:"risk"`
	Context   map[string]any `json:"context,omitempty"`
}

// SessionRow is the stored shape of a workflow session.
type SessionRow struct {
	ID      string    `json:"session_id"`
	Created time.Time `json:"created"`
	Stage   string    `json:"stage"`
}

type seqRow struct {
	Next int64 `json:"next"`
}

// QueryNextAuditSequence atomically increments and returns the session's
// sequence counter. The increment happens server-side, so concurrent
// appenders always receive distinct values.
func (c *Client) QueryNextAuditSequence(ctx context.Context, sessionID string) (int64, error) {
	results, err := surrealdb.Query[[]seqRow](ctx, c.db, `
		UPSERT type::record("audit_seq", $session) SET next += 1 RETURN AFTER
	`, map[string]any{"session": sessionID})
	if err != nil {
		return 0, fmt.Errorf("next audit sequence: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, fmt.Errorf("next audit sequence: empty result")
	}
	return (*results)[0].Result[0].Next, nil
}

// QueryInsertAuditEvent persists one ledger event.
func (c *Client) QueryInsertAuditEvent(ctx context.Context, e models.AuditEvent) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE audit_event CONTENT {
			session_id: $session,
			sequence:   $sequence,
			timestamp:  <datetime>$timestamp,
			component:  $component,
			action:     $action,
			risk:       $risk,
			context:    $context
		}
	`, map[string]any{
		"session":   e.SessionID,
		"sequence":  e.Sequence,
		"timestamp": e.Timestamp.Format(time.RFC3339Nano),
		"component": e.Component,
		"action":    e.Action,
		"risk":      string(e.Risk),
		"context":   e.Context,
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", wrapQueryError(err))
	}
	return nil
}

// QueryAuditEvents returns a session's events ordered by sequence, with
// optional component/action/risk filters applied server-side where cheap.
func (c *Client) QueryAuditEvents(ctx context.Context, sessionID, component, action string, limit int) ([]AuditRow, error) {
	sql := `SELECT * FROM audit_event WHERE session_id = $session`
	vars := map[string]any{"session": sessionID}

	if component != "" {
		sql += " AND component = $component"
		vars["component"] = component
	}
	if action != "" {
		sql += " AND action = $action"
		vars["action"] = action
	}
	sql += " ORDER BY sequence ASC"
	if limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]AuditRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}

// QueryUpsertSession records a session's current stage.
func (c *Client) QueryUpsertSession(ctx context.Context, s models.Session) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("session", $id) SET
			session_id = $id,
			created = <datetime>$created,
			stage = $stage
	`, map[string]any{
		"id":      s.ID,
		"created": s.Created.Format(time.RFC3339Nano),
		"stage":   string(s.Stage),
	})
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// QueryListSessions returns all recorded sessions, newest first.
func (c *Client) QueryListSessions(ctx context.Context, limit int) ([]SessionRow, error) {
	sql := `SELECT * FROM session ORDER BY created DESC`
	vars := map[string]any{}
	if limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = limit
	}

	results, err := surrealdb.Query[[]SessionRow](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
