package models

import "time"

// Session is one end-to-end workflow instance, created on first request and
// never deleted. The current stage is owned exclusively by the orchestrator.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Stage   Stage     `json:"stage"`
}

// State store keys for per-session artifacts. Later stages read what
// earlier stages wrote under these keys.
const (
	KeySourceSchema     = "source_schema"     // SchemaDescriptor
	KeyTargetSchema     = "target_schema"     // SchemaDescriptor
	KeyProposedMappings = "proposed_mappings" // classified candidates
	KeyApprovedMappings = "approved_mappings" // []ApprovedMapping
	KeyStatement        = "statement"         // Statement
	KeyRejectionCount   = "rejection_count"   // int, drives CRITICAL escalation
)
