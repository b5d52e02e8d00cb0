package models

import "time"

// MappingCandidate is a column mapping proposed by the external proposer.
// Candidates are untrusted until they pass validation against the captured
// schemas.
type MappingCandidate struct {
	SourceColumn string  `json:"source_column"`
	SourceType   string  `json:"source_type,omitempty"`
	TargetColumn string  `json:"target_column"`
	TargetType   string  `json:"target_type,omitempty"`
	Transform    string  `json:"transform,omitempty"`
	Confidence   float64 `json:"confidence"`
	Rationale    string  `json:"rationale,omitempty"`
}

// Mapped reports whether the candidate actually maps a source column.
// The proposer reports unmapped target columns with an empty source.
func (c MappingCandidate) Mapped() bool {
	return c.SourceColumn != ""
}

// Outcome records how a mapping candidate was decided.
type Outcome string

const (
	OutcomeAutoApproved  Outcome = "auto_approved"
	OutcomeHumanApproved Outcome = "human_approved"
	OutcomeRejected      Outcome = "rejected"
)

// ApprovedMapping is a decided mapping candidate. Immutable once created;
// a later decision for the same (source, target) pair supersedes it.
type ApprovedMapping struct {
	MappingCandidate
	Outcome   Outcome   `json:"outcome"`
	DecidedAt time.Time `json:"decided_at"`
}

// Statement holds a generated transformation statement pair. Execution
// always uses the Insert form; the Merge form is kept for incremental
// loads driven outside the workflow.
type Statement struct {
	Insert      string    `json:"insert"`
	Merge       string    `json:"merge,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
