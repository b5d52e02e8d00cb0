// Package proposer defines the mapping/statement suggestion boundary. The
// engine never trusts proposer output; everything returned here still has to
// pass validation and the confidence policy before it can gate execution.
package proposer

import (
	"context"

	"github.com/mkessler/mapgate-go/internal/models"
)

// TimeoutError reports that a proposer call exceeded its deadline. The
// caller's session state is untouched; the call may be retried.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return "proposer timed out during " + e.Op
}

// Proposer suggests column mappings and generates transformation
// statements from approved mappings.
type Proposer interface {
	// ProposeMappings returns one candidate per target column, with a
	// confidence score in [0,1] and a rationale. Target columns with no
	// plausible source are reported unmapped with confidence 0.
	ProposeMappings(ctx context.Context, source, target models.SchemaDescriptor) ([]models.MappingCandidate, error)

	// GenerateStatement produces the transformation statement pair for an
	// approved mapping set.
	GenerateStatement(ctx context.Context, source, target models.SchemaDescriptor, approved []models.ApprovedMapping) (models.Statement, error)
}
