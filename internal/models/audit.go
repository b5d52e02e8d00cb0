package models

import "time"

// AuditEvent is a single append-only ledger record. Events within a session
// are strictly ordered by Sequence; Timestamp alone is not sufficient under
// clock coarseness.
type AuditEvent struct {
	Sequence  int64          `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Component string         `json:"component"`
	Action    string         `json:"action"`
	Risk      RiskLevel      `json:"risk"`
	Context   map[string]any `json:"context,omitempty"`
}

// Audit actions written by the orchestrator. The executor refuses to run a
// statement unless ActionValidated appears earlier in the session ledger.
const (
	ActionSessionCreated       = "session_created"
	ActionCatalogListed        = "catalog_listed"
	ActionSchemasAnalyzed      = "schemas_analyzed"
	ActionMappingsProposed     = "mappings_proposed"
	ActionProposalTimeout      = "proposal_timeout"
	ActionHallucinationBlocked = "hallucination_blocked"
	ActionIdentifierBlocked    = "identifier_blocked"
	ActionMappingsApproved     = "mappings_approved"
	ActionMappingsRejected     = "mappings_rejected"
	ActionStatementGenerated   = "statement_generated"
	ActionStatementBlocked     = "statement_blocked"
	ActionValidated            = "validated"
	ActionDryRunFailed         = "dry_run_failed"
	ActionExecuted             = "executed"
	ActionExecutionFailed      = "execution_failed"
	ActionExecutionTimeout     = "execution_timeout"
)
