// Package workflow implements the stage-gated orchestrator that sequences
// the mapping workflow. Every transition validates its payload, persists it
// to session state, and appends exactly one audit event; a failed audit
// append aborts the transition.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/connector"
	"github.com/mkessler/mapgate-go/internal/metrics"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/proposer"
	"github.com/mkessler/mapgate-go/internal/state"
)

// Audit component names.
const (
	componentOrchestrator = "orchestrator"
	componentValidator    = "validator"
	componentPolicy       = "policy"
	componentExecutor     = "executor"
)

// SessionSink receives session stage changes for persistence. Satisfied by
// *db.Client; nil disables persistence.
type SessionSink interface {
	QueryUpsertSession(ctx context.Context, s models.Session) error
}

// Deps holds the orchestrator's injected collaborators.
type Deps struct {
	Store     *state.Store
	Ledger    audit.Ledger
	Connector connector.Connector
	Proposer  proposer.Proposer
	Logger    *slog.Logger
	Metrics   *metrics.Collector

	// SessionSink persists stage changes. Optional.
	SessionSink SessionSink

	// ExecuteTimeout bounds warehouse execution. Zero means no limit.
	ExecuteTimeout time.Duration
}

// Orchestrator owns all sessions and their stage transitions.
type Orchestrator struct {
	store   *state.Store
	ledger  audit.Ledger
	conn    connector.Connector
	prop    proposer.Proposer
	logger  *slog.Logger
	metrics *metrics.Collector
	sink    SessionSink

	executeTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Orchestrator{
		store:          deps.Store,
		ledger:         deps.Ledger,
		conn:           deps.Connector,
		prop:           deps.Proposer,
		logger:         logger,
		metrics:        collector,
		sink:           deps.SessionSink,
		executeTimeout: deps.ExecuteTimeout,
		sessions:       make(map[string]*models.Session),
	}
}

// Metrics returns the orchestrator's collector.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// EnsureSession returns the session with the given ID, creating it on first
// request. An empty ID creates a session with a fresh UUID. Creation itself
// is audited; if that append fails, the session does not exist.
func (o *Orchestrator) EnsureSession(ctx context.Context, id string) (models.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	o.mu.RLock()
	sess, ok := o.sessions[id]
	o.mu.RUnlock()
	if ok {
		return *sess, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok = o.sessions[id]; ok {
		return *sess, nil
	}

	candidate := &models.Session{
		ID:      id,
		Created: time.Now().UTC(),
		Stage:   models.StageDiscovery,
	}
	if err := o.appendAudit(ctx, models.AuditEvent{
		SessionID: id,
		Component: componentOrchestrator,
		Action:    models.ActionSessionCreated,
		Risk:      models.RiskLow,
	}); err != nil {
		return models.Session{}, err
	}

	o.sessions[id] = candidate
	o.persistSession(ctx, *candidate)
	o.logger.Info("session created", "session_id", id)
	return *candidate, nil
}

// Session returns a copy of the session if it exists.
func (o *Orchestrator) Session(id string) (models.Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	sess, ok := o.sessions[id]
	if !ok {
		return models.Session{}, false
	}
	return *sess, true
}

// withTransition serializes a stage transition per session and records it
// in the metrics collector.
func (o *Orchestrator) withTransition(sessionID string, fn func() error) error {
	start := time.Now()
	if err := o.store.WithSessionLock(sessionID, fn); err != nil {
		o.metrics.RecordFailure(metrics.OpTransition)
		return err
	}
	o.metrics.RecordTiming(metrics.OpTransition, time.Since(start))
	return nil
}

// requireStage gates an operation on the session's current stage.
func requireStage(op string, current models.Stage, allowed ...models.Stage) error {
	for _, a := range allowed {
		if current == a {
			return nil
		}
	}
	return &InvalidStateError{Op: op, Current: current, Required: allowed}
}

// currentStage reads the stage under the registry lock.
func (o *Orchestrator) currentStage(id string) (models.Stage, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	sess, ok := o.sessions[id]
	if !ok {
		return "", false
	}
	return sess.Stage, true
}

// setStage commits a stage change and mirrors it to the sink.
func (o *Orchestrator) setStage(ctx context.Context, id string, stage models.Stage) {
	o.mu.Lock()
	sess, ok := o.sessions[id]
	if ok {
		sess.Stage = stage
	}
	var copySess models.Session
	if ok {
		copySess = *sess
	}
	o.mu.Unlock()

	if ok {
		o.persistSession(ctx, copySess)
	}
}

func (o *Orchestrator) persistSession(ctx context.Context, s models.Session) {
	if o.sink == nil {
		return
	}
	if err := o.sink.QueryUpsertSession(ctx, s); err != nil {
		// Persistence is advisory; the ledger is the durable record.
		o.logger.Warn("session persistence failed", "session_id", s.ID, "error", err)
	}
}

// appendAudit writes a ledger event, timing it and converting failures into
// audit.WriteError so callers abort the in-flight transition.
func (o *Orchestrator) appendAudit(ctx context.Context, e models.AuditEvent) error {
	start := time.Now()
	if _, err := o.ledger.Append(ctx, e); err != nil {
		o.metrics.RecordFailure(metrics.OpAuditAppend)
		o.logger.Error("audit append failed, aborting transition",
			"session_id", e.SessionID, "action", e.Action, "error", err)
		return err
	}
	o.metrics.RecordTiming(metrics.OpAuditAppend, time.Since(start))
	return nil
}

// guardrailBlock audits a validator rejection at CRITICAL and returns the
// original error. Used for stage-blocking validation failures.
func (o *Orchestrator) guardrailBlock(ctx context.Context, sessionID, action string, cause error, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["reason"] = cause.Error()

	if err := o.appendAudit(ctx, models.AuditEvent{
		SessionID: sessionID,
		Component: componentValidator,
		Action:    action,
		Risk:      models.RiskCritical,
		Context:   payload,
	}); err != nil {
		return err
	}
	return cause
}
