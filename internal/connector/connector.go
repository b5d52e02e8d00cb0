// Package connector defines the warehouse boundary: schema discovery, row
// sampling, and statement execution. The orchestrator only ever hands this
// interface validator-approved statements.
package connector

import (
	"context"

	"github.com/mkessler/mapgate-go/internal/models"
)

// Error wraps a warehouse failure. Read-only calls (listing, schema fetch,
// sampling, dry run) are retryable at caller discretion; execution is not.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "connector " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ExecResult reports the outcome of a statement run.
type ExecResult struct {
	DryRun       bool  `json:"dry_run"`
	RowsAffected int64 `json:"rows_affected"`
}

// Connector is the read/write contract with the data warehouse.
type Connector interface {
	ListDatasets(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, dataset string) ([]string, error)
	GetSchema(ctx context.Context, dataset, table string) (models.SchemaDescriptor, error)
	SampleRows(ctx context.Context, dataset, table string, n int) ([]map[string]any, error)

	// Execute runs a statement. With dryRun set it validates the statement
	// against the warehouse without mutating any data.
	Execute(ctx context.Context, statement string, dryRun bool) (ExecResult, error)
}
