package workflow

import (
	"fmt"
	"strings"

	"github.com/mkessler/mapgate-go/internal/models"
)

// InvalidStateError reports an operation requested from the wrong stage.
// Recoverable: the caller must re-sequence, not retry.
type InvalidStateError struct {
	Op       string
	Current  models.Stage
	Required []models.Stage
}

func (e *InvalidStateError) Error() string {
	reqs := make([]string, len(e.Required))
	for i, r := range e.Required {
		reqs[i] = string(r)
	}
	return fmt.Sprintf("operation %s is not legal from stage %s (requires %s)",
		e.Op, e.Current, strings.Join(reqs, " or "))
}

// PolicyOverrideError reports an attempt to approve a candidate the
// confidence policy rejected. The policy decision is not overridable.
type PolicyOverrideError struct {
	TargetColumn string
}

func (e *PolicyOverrideError) Error() string {
	return fmt.Sprintf("candidate for target column %q was rejected by the confidence policy and cannot be approved; re-run mapping proposal with better inputs", e.TargetColumn)
}

// ArtifactError reports a missing or malformed session artifact. Indicates
// a stage was entered without its prerequisites, which the stage gate should
// have prevented.
type ArtifactError struct {
	Key string
	Err error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("session artifact %q unavailable: %v", e.Key, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }
