package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mkessler/mapgate-go/internal/models"
)

func TestMemoryLedgerSequencing(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	for i := 1; i <= 5; i++ {
		seq, err := l.Append(ctx, models.AuditEvent{
			SessionID: "sess-1",
			Component: "orchestrator",
			Action:    "session_created",
			Risk:      models.RiskLow,
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if seq != int64(i) {
			t.Fatalf("Append() seq = %d, want %d", seq, i)
		}
	}

	events, err := l.Query(ctx, "sess-1", Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	for i, e := range events {
		if e.Sequence != int64(i+1) {
			t.Errorf("event %d has sequence %d", i, e.Sequence)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d has zero timestamp", i)
		}
	}
}

func TestMemoryLedgerConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	const sessions = 8
	const perSession = 50

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", i)
			for j := 0; j < perSession; j++ {
				if _, err := l.Append(ctx, models.AuditEvent{SessionID: id, Action: "executed"}); err != nil {
					t.Errorf("Append() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	// Each session's sequence must be dense and ordered regardless of what
	// other sessions did concurrently.
	for i := 0; i < sessions; i++ {
		events, err := l.Query(ctx, fmt.Sprintf("sess-%d", i), Filter{})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(events) != perSession {
			t.Fatalf("session %d has %d events, want %d", i, len(events), perSession)
		}
		for j, e := range events {
			if e.Sequence != int64(j+1) {
				t.Fatalf("session %d event %d has sequence %d", i, j, e.Sequence)
			}
		}
	}
}

func TestMemoryLedgerFilters(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	seed := []models.AuditEvent{
		{SessionID: "s", Component: "orchestrator", Action: "session_created", Risk: models.RiskLow},
		{SessionID: "s", Component: "policy", Action: "mappings_proposed", Risk: models.RiskMedium},
		{SessionID: "s", Component: "validator", Action: "statement_blocked", Risk: models.RiskCritical},
		{SessionID: "s", Component: "executor", Action: "executed", Risk: models.RiskHigh},
	}
	for _, e := range seed {
		if _, err := l.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no filter", Filter{}, 4},
		{"by component", Filter{Component: "policy"}, 1},
		{"by action", Filter{Action: "executed"}, 1},
		{"min risk high", Filter{MinRisk: models.RiskHigh}, 2},
		{"min risk critical", Filter{MinRisk: models.RiskCritical}, 1},
		{"limit", Filter{Limit: 2}, 2},
		{"component and risk", Filter{Component: "orchestrator", MinRisk: models.RiskHigh}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := l.Query(ctx, "s", tt.filter)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}
