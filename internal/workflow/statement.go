package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/connector"
	"github.com/mkessler/mapgate-go/internal/metrics"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/validate"
)

// ExecutionResult reports the outcome of a dry run or a real execution.
type ExecutionResult struct {
	connector.ExecResult
	Stage models.Stage `json:"stage"`
}

// GenerateStatement turns the approved mapping set into a transformation
// statement pair and advances to statement_generated. The statement must
// pass the fail-closed validator before it is stored; a validator rejection
// is audited at CRITICAL and leaves the session where it was. Re-running
// regenerates and replaces the stored statement.
func (o *Orchestrator) GenerateStatement(ctx context.Context, sessionID string) (models.Statement, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return models.Statement{}, err
	}

	var stmt models.Statement
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("generate_statement", stage,
			models.StageMappingApproved, models.StageStatementGenerated); err != nil {
			return err
		}

		source, target, err := o.schemasFromState(sess.ID)
		if err != nil {
			return err
		}
		approved, err := o.approvedFromState(sess.ID)
		if err != nil {
			return err
		}

		generated, err := o.prop.GenerateStatement(ctx, source, target, approved)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpProposer)
			return err
		}
		generated.GeneratedAt = time.Now().UTC()

		schemas := []models.SchemaDescriptor{source, target}
		for _, s := range []string{generated.Insert, generated.Merge} {
			if s == "" {
				continue
			}
			if err := validate.ValidateStatement(s, schemas); err != nil {
				return o.guardrailBlock(ctx, sess.ID, models.ActionStatementBlocked, err, nil)
			}
		}

		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentOrchestrator,
			Action:    models.ActionStatementGenerated,
			Risk:      models.RiskMedium,
			Context:   map[string]any{"target": target.Dataset + "." + target.Table},
		}); err != nil {
			return err
		}

		o.store.Put(sess.ID, models.KeyStatement, generated)
		o.setStage(ctx, sess.ID, models.StageStatementGenerated)
		stmt = generated
		return nil
	})
	if err != nil {
		return models.Statement{}, err
	}
	return stmt, nil
}

// DryRun validates the stored statement against the live warehouse without
// mutating data. Success advances to dry_run_passed and writes the
// "validated" event the executor later requires; failure is audited and
// leaves the session at statement_generated for regeneration.
func (o *Orchestrator) DryRun(ctx context.Context, sessionID string) (ExecutionResult, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return ExecutionResult{}, err
	}

	var result ExecutionResult
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("dry_run", stage, models.StageStatementGenerated); err != nil {
			return err
		}

		stmt, err := o.statementFromState(sess.ID)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := o.conn.Execute(ctx, stmt.Insert, true)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpConnector)
			if auditErr := o.appendAudit(ctx, models.AuditEvent{
				SessionID: sess.ID,
				Component: componentExecutor,
				Action:    models.ActionDryRunFailed,
				Risk:      models.RiskHigh,
				Context:   map[string]any{"reason": err.Error()},
			}); auditErr != nil {
				return auditErr
			}
			return err
		}
		o.metrics.RecordTiming(metrics.OpConnector, time.Since(start))

		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentExecutor,
			Action:    models.ActionValidated,
			Risk:      models.RiskLow,
		}); err != nil {
			return err
		}

		o.setStage(ctx, sess.ID, models.StageDryRunPassed)
		result = ExecutionResult{ExecResult: res, Stage: models.StageDryRunPassed}
		return nil
	})
	if err != nil {
		return ExecutionResult{}, err
	}
	return result, nil
}

// Execute runs the stored statement against the warehouse. Legal only from
// dry_run_passed, and only when the session ledger carries a "validated"
// event; both checks fail closed. Every outcome is terminal: success ends at
// executed, failure or timeout at failed.
func (o *Orchestrator) Execute(ctx context.Context, sessionID string) (ExecutionResult, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return ExecutionResult{}, err
	}

	var result ExecutionResult
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("execute", stage, models.StageDryRunPassed); err != nil {
			return err
		}

		// The stage gate should make this unreachable; the ledger check is
		// the independent second gate.
		events, err := o.ledger.Query(ctx, sess.ID, audit.Filter{Action: models.ActionValidated, Limit: 1})
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no dry-run validation recorded for session %s, refusing to execute", sess.ID)
		}

		stmt, err := o.statementFromState(sess.ID)
		if err != nil {
			return err
		}

		execCtx := ctx
		if o.executeTimeout > 0 {
			var cancel context.CancelFunc
			execCtx, cancel = context.WithTimeout(ctx, o.executeTimeout)
			defer cancel()
		}

		start := time.Now()
		res, err := o.conn.Execute(execCtx, stmt.Insert, false)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpConnector)
			action := models.ActionExecutionFailed
			if errors.Is(err, context.DeadlineExceeded) {
				action = models.ActionExecutionTimeout
			}
			if auditErr := o.appendAudit(ctx, models.AuditEvent{
				SessionID: sess.ID,
				Component: componentExecutor,
				Action:    action,
				Risk:      models.RiskHigh,
				Context:   map[string]any{"reason": err.Error()},
			}); auditErr != nil {
				return auditErr
			}
			o.setStage(ctx, sess.ID, models.StageFailed)
			return err
		}
		o.metrics.RecordTiming(metrics.OpConnector, time.Since(start))

		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentExecutor,
			Action:    models.ActionExecuted,
			Risk:      models.RiskHigh,
			Context:   map[string]any{"rows_affected": res.RowsAffected},
		}); err != nil {
			return err
		}

		o.setStage(ctx, sess.ID, models.StageExecuted)
		result = ExecutionResult{ExecResult: res, Stage: models.StageExecuted}
		return nil
	})
	if err != nil {
		return ExecutionResult{}, err
	}
	return result, nil
}

func (o *Orchestrator) approvedFromState(sessionID string) ([]models.ApprovedMapping, error) {
	v, err := o.store.Get(sessionID, models.KeyApprovedMappings)
	if err != nil {
		return nil, &ArtifactError{Key: models.KeyApprovedMappings, Err: err}
	}
	approved, ok := v.([]models.ApprovedMapping)
	if !ok {
		return nil, &ArtifactError{Key: models.KeyApprovedMappings, Err: errors.New("unexpected artifact type")}
	}
	return approved, nil
}

func (o *Orchestrator) statementFromState(sessionID string) (models.Statement, error) {
	v, err := o.store.Get(sessionID, models.KeyStatement)
	if err != nil {
		return models.Statement{}, &ArtifactError{Key: models.KeyStatement, Err: err}
	}
	stmt, ok := v.(models.Statement)
	if !ok {
		return models.Statement{}, &ArtifactError{Key: models.KeyStatement, Err: errors.New("unexpected artifact type")}
	}
	return stmt, nil
}
