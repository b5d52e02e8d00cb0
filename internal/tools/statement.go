package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateStatementInput defines the input schema for the generate_statement tool.
type GenerateStatementInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session with approved mappings"`
}

// NewGenerateStatementHandler creates the generate_statement tool handler.
// Re-running from statement_generated regenerates the statement.
func NewGenerateStatementHandler(deps *Dependencies) mcp.ToolHandlerFor[GenerateStatementInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GenerateStatementInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		stmt, err := deps.Orchestrator.GenerateStatement(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("statement generation failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Statement generation failed", err.Error()), nil, nil
		}
		return JSONResult(stmt), nil, nil
	}
}

// DryRunInput defines the input schema for the dry_run tool.
type DryRunInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session with a generated statement"`
}

// NewDryRunHandler creates the dry_run tool handler.
func NewDryRunHandler(deps *Dependencies) mcp.ToolHandlerFor[DryRunInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DryRunInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		result, err := deps.Orchestrator.DryRun(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("dry run failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Dry run failed", "Regenerate the statement or check the warehouse"), nil, nil
		}
		return JSONResult(result), nil, nil
	}
}

// ExecuteInput defines the input schema for the execute tool.
type ExecuteInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session that passed a dry run"`
}

// NewExecuteHandler creates the execute tool handler. Execution is terminal:
// whatever the outcome, the session accepts no further transitions.
func NewExecuteHandler(deps *Dependencies) mcp.ToolHandlerFor[ExecuteInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ExecuteInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		result, err := deps.Orchestrator.Execute(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("execution failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Execution failed, session is terminal", "Start a new session to retry the mapping"), nil, nil
		}

		deps.Logger.Info("statement executed", "session_id", input.SessionID,
			"rows_affected", result.RowsAffected)
		return JSONResult(result), nil, nil
	}
}
