package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CreateSessionInput defines the input schema for the create_session tool.
type CreateSessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session ID to create or resume; omit to mint a fresh one"`
}

// NewCreateSessionHandler creates the create_session tool handler.
// Creating an already-known session is a no-op that returns its current state.
func NewCreateSessionHandler(deps *Dependencies) mcp.ToolHandlerFor[CreateSessionInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CreateSessionInput) (
		*mcp.CallToolResult, any, error,
	) {
		sess, err := deps.Orchestrator.EnsureSession(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			return nil, nil, err
		}
		deps.Logger.Info("session ready", "session_id", sess.ID, "stage", sess.Stage)
		return JSONResult(sess), nil, nil
	}
}

// SessionStatusInput defines the input schema for the session_status tool.
type SessionStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session to inspect"`
}

// NewSessionStatusHandler creates the session_status tool handler.
func NewSessionStatusHandler(deps *Dependencies) mcp.ToolHandlerFor[SessionStatusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SessionStatusInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		status, err := deps.Orchestrator.Status(input.SessionID)
		if err != nil {
			return ErrorResult(err.Error(), "Call create_session first"), nil, nil
		}
		return JSONResult(status), nil, nil
	}
}

// NewEngineStatsHandler creates the engine_stats tool handler, exposing the
// in-memory metrics snapshot.
func NewEngineStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[struct{}, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (
		*mcp.CallToolResult, any, error,
	) {
		return JSONResult(deps.Orchestrator.Metrics().Snapshot()), nil, nil
	}
}
