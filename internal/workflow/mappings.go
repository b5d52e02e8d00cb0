package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkessler/mapgate-go/internal/metrics"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/policy"
	"github.com/mkessler/mapgate-go/internal/proposer"
	"github.com/mkessler/mapgate-go/internal/validate"
)

// ClassifiedCandidate is a validated mapping candidate with its policy
// decision attached. This is what reviewers see and decide on.
type ClassifiedCandidate struct {
	models.MappingCandidate
	Decision        policy.Decision `json:"decision"`
	PolicyRationale string          `json:"policy_rationale"`
}

// BlockedCandidate records a proposer candidate quarantined by validation.
// Blocked candidates never reach the reviewer's decision list.
type BlockedCandidate struct {
	models.MappingCandidate
	Reason string `json:"reason"`
}

// ProposalResult is the outcome of a mapping proposal round.
type ProposalResult struct {
	Candidates []ClassifiedCandidate `json:"candidates"`
	Blocked    []BlockedCandidate    `json:"blocked,omitempty"`
}

// Selection is a reviewer's decision for one target column.
type Selection struct {
	TargetColumn string `json:"target_column"`
	Approve      bool   `json:"approve"`
	Note         string `json:"note,omitempty"`
}

// ApprovalResult reports the outcome of an approval round. Pending lists
// target columns still awaiting a reviewer decision; the session does not
// advance until it is empty.
type ApprovalResult struct {
	Approved []models.ApprovedMapping `json:"approved"`
	Rejected []models.ApprovedMapping `json:"rejected,omitempty"`
	Pending  []string                 `json:"pending,omitempty"`
	Stage    models.Stage             `json:"stage"`
}

// criticalRejectionRounds is how many approval rounds with rejections a
// session tolerates before a full rejection escalates to CRITICAL.
const criticalRejectionRounds = 3

// ProposeMappings asks the proposer for one candidate per target column,
// quarantines candidates that reference columns outside the captured
// schemas, classifies the rest, and advances to mapping_proposed.
// Re-running from mapping_proposed replaces the previous proposal.
func (o *Orchestrator) ProposeMappings(ctx context.Context, sessionID string) (ProposalResult, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return ProposalResult{}, err
	}

	var result ProposalResult
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("propose_mappings", stage,
			models.StageSchemaAnalyzed, models.StageMappingProposed); err != nil {
			return err
		}

		source, target, err := o.schemasFromState(sess.ID)
		if err != nil {
			return err
		}

		start := time.Now()
		raw, err := o.prop.ProposeMappings(ctx, source, target)
		if err != nil {
			o.metrics.RecordFailure(metrics.OpProposer)
			var timeout *proposer.TimeoutError
			if errors.As(err, &timeout) {
				// Timeout leaves the session untouched and retryable.
				if auditErr := o.appendAudit(ctx, models.AuditEvent{
					SessionID: sess.ID,
					Component: componentOrchestrator,
					Action:    models.ActionProposalTimeout,
					Risk:      models.RiskMedium,
				}); auditErr != nil {
					return auditErr
				}
			}
			return err
		}
		o.metrics.RecordTiming(metrics.OpProposer, time.Since(start))

		deduped, superseded := dedupeByTarget(raw)

		var candidates []ClassifiedCandidate
		var blocked []BlockedCandidate
		for _, c := range deduped {
			if err := validate.ValidateCandidate(c, source, target); err != nil {
				blocked = append(blocked, BlockedCandidate{MappingCandidate: c, Reason: err.Error()})
				continue
			}
			d := policy.Classify(c.Confidence)
			candidates = append(candidates, ClassifiedCandidate{
				MappingCandidate: c,
				Decision:         d,
				PolicyRationale:  policy.Rationale(d, c.Confidence),
			})
		}

		if len(blocked) > 0 {
			names := make([]string, len(blocked))
			for i, b := range blocked {
				names[i] = b.TargetColumn
			}
			if err := o.appendAudit(ctx, models.AuditEvent{
				SessionID: sess.ID,
				Component: componentValidator,
				Action:    models.ActionHallucinationBlocked,
				Risk:      models.RiskHigh,
				Context:   map[string]any{"target_columns": names},
			}); err != nil {
				return err
			}
		}

		var confidenceSum float64
		unmapped := 0
		for _, c := range candidates {
			confidenceSum += c.Confidence
			if !c.Mapped() {
				unmapped++
			}
		}
		proposedCtx := map[string]any{
			"candidates": len(candidates),
			"blocked":    len(blocked),
			"unmapped":   unmapped,
		}
		if len(candidates) > 0 {
			proposedCtx["avg_confidence"] = confidenceSum / float64(len(candidates))
		}
		if len(superseded) > 0 {
			proposedCtx["superseded"] = superseded
		}
		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentPolicy,
			Action:    models.ActionMappingsProposed,
			Risk:      models.RiskMedium,
			Context:   proposedCtx,
		}); err != nil {
			return err
		}

		o.store.Put(sess.ID, models.KeyProposedMappings, candidates)
		o.setStage(ctx, sess.ID, models.StageMappingProposed)

		result = ProposalResult{Candidates: candidates, Blocked: blocked}
		return nil
	})
	if err != nil {
		return ProposalResult{}, err
	}
	return result, nil
}

// ApproveMappings applies reviewer selections to the proposed candidates.
// Auto-approved candidates need no selection but may be rejected; candidates
// in the review band need one; policy-rejected candidates cannot be approved.
// The session advances only when every candidate is resolved and at least one
// mapping survived. A fully rejected proposal terminates the session.
func (o *Orchestrator) ApproveMappings(ctx context.Context, sessionID string, selections []Selection) (ApprovalResult, error) {
	sess, err := o.EnsureSession(ctx, sessionID)
	if err != nil {
		return ApprovalResult{}, err
	}

	var result ApprovalResult
	err = o.withTransition(sess.ID, func() error {
		stage, _ := o.currentStage(sess.ID)
		if err := requireStage("approve_mappings", stage, models.StageMappingProposed); err != nil {
			return err
		}

		candidates, err := o.proposalsFromState(sess.ID)
		if err != nil {
			return err
		}

		selected := make(map[string]Selection, len(selections))
		for _, s := range selections {
			if _, ok := findCandidate(candidates, s.TargetColumn); !ok {
				return fmt.Errorf("no proposed candidate for target column %q", s.TargetColumn)
			}
			selected[s.TargetColumn] = s
		}

		now := time.Now().UTC()
		var approved, rejected []models.ApprovedMapping
		var pending []string
		for _, c := range candidates {
			sel, hasSel := selected[c.TargetColumn]
			switch c.Decision {
			case policy.AutoApprove:
				outcome := models.OutcomeAutoApproved
				if hasSel && !sel.Approve {
					outcome = models.OutcomeRejected
				}
				decided := models.ApprovedMapping{MappingCandidate: c.MappingCandidate, Outcome: outcome, DecidedAt: now}
				if outcome == models.OutcomeRejected {
					rejected = append(rejected, decided)
				} else {
					approved = append(approved, decided)
				}

			case policy.NeedsReview:
				if !hasSel {
					pending = append(pending, c.TargetColumn)
					continue
				}
				outcome := models.OutcomeRejected
				if sel.Approve {
					outcome = models.OutcomeHumanApproved
				}
				decided := models.ApprovedMapping{MappingCandidate: c.MappingCandidate, Outcome: outcome, DecidedAt: now}
				if outcome == models.OutcomeRejected {
					rejected = append(rejected, decided)
				} else {
					approved = append(approved, decided)
				}

			default: // policy.Reject
				if hasSel && sel.Approve {
					return &PolicyOverrideError{TargetColumn: c.TargetColumn}
				}
				rejected = append(rejected, models.ApprovedMapping{
					MappingCandidate: c.MappingCandidate, Outcome: models.OutcomeRejected, DecidedAt: now})
			}
		}

		if len(pending) > 0 {
			// Incomplete review round: no audit event, no transition, and no
			// rejection-round accounting. A reviewer re-submitting the same
			// partial selections must not inflate the escalation counter.
			result = ApprovalResult{Approved: approved, Rejected: rejected, Pending: pending, Stage: stage}
			return nil
		}

		rounds := o.bumpRejectionRounds(sess.ID, len(rejected) > 0)

		if len(approved) == 0 {
			risk := models.RiskHigh
			if rounds >= criticalRejectionRounds {
				risk = models.RiskCritical
			}
			if err := o.appendAudit(ctx, models.AuditEvent{
				SessionID: sess.ID,
				Component: componentPolicy,
				Action:    models.ActionMappingsRejected,
				Risk:      risk,
				Context:   map[string]any{"rejected": len(rejected), "rejection_rounds": rounds},
			}); err != nil {
				return err
			}
			o.setStage(ctx, sess.ID, models.StageRejected)
			result = ApprovalResult{Rejected: rejected, Stage: models.StageRejected}
			return nil
		}

		risk := models.RiskLow
		for _, a := range approved {
			if a.Outcome == models.OutcomeHumanApproved {
				risk = models.RiskHigh
				break
			}
		}
		if err := o.appendAudit(ctx, models.AuditEvent{
			SessionID: sess.ID,
			Component: componentPolicy,
			Action:    models.ActionMappingsApproved,
			Risk:      risk,
			Context:   map[string]any{"approved": len(approved), "rejected": len(rejected)},
		}); err != nil {
			return err
		}

		decided := make([]models.ApprovedMapping, 0, len(approved)+len(rejected))
		decided = append(decided, approved...)
		decided = append(decided, rejected...)
		o.store.Put(sess.ID, models.KeyApprovedMappings, decided)
		o.setStage(ctx, sess.ID, models.StageMappingApproved)

		result = ApprovalResult{Approved: approved, Rejected: rejected, Stage: models.StageMappingApproved}
		return nil
	})
	if err != nil {
		return ApprovalResult{}, err
	}
	return result, nil
}

// bumpRejectionRounds counts completed approval rounds that rejected
// something. The count feeds risk escalation on a final full rejection.
func (o *Orchestrator) bumpRejectionRounds(sessionID string, rejectedAny bool) int {
	rounds := 0
	if v, err := o.store.Get(sessionID, models.KeyRejectionCount); err == nil {
		if n, ok := v.(int); ok {
			rounds = n
		}
	}
	if rejectedAny {
		rounds++
		o.store.Put(sessionID, models.KeyRejectionCount, rounds)
	}
	return rounds
}

// proposalsFromState loads the classified candidate list.
func (o *Orchestrator) proposalsFromState(sessionID string) ([]ClassifiedCandidate, error) {
	v, err := o.store.Get(sessionID, models.KeyProposedMappings)
	if err != nil {
		return nil, &ArtifactError{Key: models.KeyProposedMappings, Err: err}
	}
	candidates, ok := v.([]ClassifiedCandidate)
	if !ok {
		return nil, &ArtifactError{Key: models.KeyProposedMappings, Err: errors.New("unexpected artifact type")}
	}
	return candidates, nil
}

func findCandidate(candidates []ClassifiedCandidate, targetColumn string) (ClassifiedCandidate, bool) {
	for _, c := range candidates {
		if c.TargetColumn == targetColumn {
			return c, true
		}
	}
	return ClassifiedCandidate{}, false
}

// dedupeByTarget keeps the highest-confidence candidate per target column,
// preserving first-seen order of targets. Superseded duplicates are returned
// so the proposal event can record them.
func dedupeByTarget(candidates []models.MappingCandidate) ([]models.MappingCandidate, []string) {
	index := make(map[string]int, len(candidates))
	var out []models.MappingCandidate
	var superseded []string
	for _, c := range candidates {
		if i, ok := index[c.TargetColumn]; ok {
			superseded = append(superseded, c.TargetColumn)
			if c.Confidence > out[i].Confidence {
				out[i] = c
			}
			continue
		}
		index[c.TargetColumn] = len(out)
		out = append(out, c)
	}
	return out, superseded
}
