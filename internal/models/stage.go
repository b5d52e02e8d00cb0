// Package models defines the core domain types shared across the workflow
// engine: sessions, schemas, mapping candidates, and audit events.
package models

// Stage represents the lifecycle state of a mapping workflow session.
type Stage string

const (
	StageDiscovery          Stage = "discovery"
	StageSchemaAnalyzed     Stage = "schema_analyzed"
	StageMappingProposed    Stage = "mapping_proposed"
	StageMappingApproved    Stage = "mapping_approved"
	StageStatementGenerated Stage = "statement_generated"
	StageDryRunPassed       Stage = "dry_run_passed"

	// Terminal stages. A session in one of these accepts no further
	// transitions, only read-only queries.
	StageExecuted Stage = "executed"
	StageRejected Stage = "rejected"
	StageFailed   Stage = "failed"
)

// Terminal reports whether the stage accepts no further transitions.
func (s Stage) Terminal() bool {
	switch s {
	case StageExecuted, StageRejected, StageFailed:
		return true
	}
	return false
}

// RiskLevel classifies an audited action for compliance review.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskRank orders risk levels for filtering and comparisons.
var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether r is at or above the given minimum level.
// Unknown levels compare as LOW.
func (r RiskLevel) AtLeast(min RiskLevel) bool {
	return riskRank[r] >= riskRank[min]
}
