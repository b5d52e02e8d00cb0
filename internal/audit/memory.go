package audit

import (
	"context"
	"sync"
	"time"

	"github.com/mkessler/mapgate-go/internal/models"
)

// MemoryLedger is the in-process ledger backend. Used when no database is
// configured and throughout the test suite.
type MemoryLedger struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
}

type sessionLog struct {
	mu      sync.Mutex
	nextSeq int64
	events  []models.AuditEvent
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sessions: make(map[string]*sessionLog)}
}

func (l *MemoryLedger) session(id string) *sessionLog {
	l.mu.RLock()
	sl, ok := l.sessions[id]
	l.mu.RUnlock()
	if ok {
		return sl
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if sl, ok = l.sessions[id]; ok {
		return sl
	}
	sl = &sessionLog{nextSeq: 1}
	l.sessions[id] = sl
	return sl
}

// Append implements Ledger. The sequence counter is per-session, which is
// sufficient because ordering is only required within a session.
func (l *MemoryLedger) Append(ctx context.Context, event models.AuditEvent) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &WriteError{Err: err}
	}

	sl := l.session(event.SessionID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	event.Sequence = sl.nextSeq
	sl.nextSeq++
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	sl.events = append(sl.events, event)
	return event.Sequence, nil
}

// Query implements Ledger. Events come back in append order.
func (l *MemoryLedger) Query(ctx context.Context, sessionID string, f Filter) ([]models.AuditEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sl := l.session(sessionID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	var out []models.AuditEvent
	for _, e := range sl.events {
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
