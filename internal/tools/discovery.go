package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mkessler/mapgate-go/internal/models"
)

// DiscoverInput defines the input schema for the discover_catalog tool.
type DiscoverInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session to discover for"`
}

// NewDiscoverHandler creates the discover_catalog tool handler.
// Read-only: lists datasets and tables without changing the session stage.
func NewDiscoverHandler(deps *Dependencies) mcp.ToolHandlerFor[DiscoverInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DiscoverInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		catalog, err := deps.Orchestrator.Discover(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("discovery failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Catalog discovery failed", "Warehouse may be unavailable"), nil, nil
		}
		return JSONResult(catalog), nil, nil
	}
}

// AnalyzeSchemasInput defines the input schema for the analyze_schemas tool.
type AnalyzeSchemasInput struct {
	SessionID     string `json:"session_id" jsonschema:"required,Session to analyze for"`
	SourceDataset string `json:"source_dataset" jsonschema:"required,Dataset of the source table"`
	SourceTable   string `json:"source_table" jsonschema:"required,Source table name"`
	TargetDataset string `json:"target_dataset" jsonschema:"required,Dataset of the target table"`
	TargetTable   string `json:"target_table" jsonschema:"required,Target table name"`
}

// NewAnalyzeSchemasHandler creates the analyze_schemas tool handler.
func NewAnalyzeSchemasHandler(deps *Dependencies) mcp.ToolHandlerFor[AnalyzeSchemasInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeSchemasInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}
		if input.SourceDataset == "" || input.SourceTable == "" ||
			input.TargetDataset == "" || input.TargetTable == "" {
			return ErrorResult("source and target tables are required",
				"Provide source_dataset, source_table, target_dataset and target_table"), nil, nil
		}

		analysis, err := deps.Orchestrator.AnalyzeSchemas(ctx, input.SessionID,
			models.TableRef{Dataset: input.SourceDataset, Table: input.SourceTable},
			models.TableRef{Dataset: input.TargetDataset, Table: input.TargetTable})
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("schema analysis failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Schema analysis failed", "Check that both tables exist"), nil, nil
		}

		deps.Logger.Info("schemas analyzed", "session_id", input.SessionID,
			"source_columns", len(analysis.Source.Columns), "target_columns", len(analysis.Target.Columns))
		return JSONResult(analysis), nil, nil
	}
}
