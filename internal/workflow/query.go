package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/models"
)

// SessionStatus is a read-only view of a session's progress.
type SessionStatus struct {
	Session   models.Session `json:"session"`
	Terminal  bool           `json:"terminal"`
	Artifacts []string       `json:"artifacts,omitempty"`
}

// QueryAudit returns the session's ledger slice matching the filter, in
// sequence order. Read-only and legal at any stage, terminal included.
func (o *Orchestrator) QueryAudit(ctx context.Context, sessionID string, filter audit.Filter) ([]models.AuditEvent, error) {
	if _, ok := o.Session(sessionID); !ok {
		return nil, fmt.Errorf("unknown session %s", sessionID)
	}
	return o.ledger.Query(ctx, sessionID, filter)
}

// Status reports the session's current stage and which artifacts exist.
func (o *Orchestrator) Status(sessionID string) (SessionStatus, error) {
	sess, ok := o.Session(sessionID)
	if !ok {
		return SessionStatus{}, fmt.Errorf("unknown session %s", sessionID)
	}

	snapshot := o.store.Snapshot(sess.ID)
	artifacts := make([]string, 0, len(snapshot))
	for k := range snapshot {
		artifacts = append(artifacts, k)
	}
	sort.Strings(artifacts)

	return SessionStatus{
		Session:   sess,
		Terminal:  sess.Stage.Terminal(),
		Artifacts: artifacts,
	}, nil
}

// Sessions lists all known sessions sorted by creation time.
func (o *Orchestrator) Sessions() []models.Session {
	o.mu.RLock()
	out := make([]models.Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		out = append(out, *s)
	}
	o.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}
