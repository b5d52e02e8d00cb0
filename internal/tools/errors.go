package tools

import (
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mkessler/mapgate-go/internal/proposer"
	"github.com/mkessler/mapgate-go/internal/validate"
	"github.com/mkessler/mapgate-go/internal/workflow"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so the caller can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// JSONResult marshals v and wraps it as a success result.
func JSONResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult("Failed to encode result", "")
	}
	return TextResult(string(data))
}

// resultForError maps recoverable workflow errors to tool error results
// with a recovery hint. Unrecoverable errors return nil so the handler
// propagates them to the protocol layer.
func resultForError(err error) *mcp.CallToolResult {
	var invalidState *workflow.InvalidStateError
	if errors.As(err, &invalidState) {
		return ErrorResult(err.Error(), "Call session_status to see the current stage and run the required operation first")
	}

	var override *workflow.PolicyOverrideError
	if errors.As(err, &override) {
		return ErrorResult(err.Error(), "Policy rejections cannot be approved; re-run propose_mappings")
	}

	var artifact *workflow.ArtifactError
	if errors.As(err, &artifact) {
		return ErrorResult(err.Error(), "Re-run the stage that produces this artifact")
	}

	var timeout *proposer.TimeoutError
	if errors.As(err, &timeout) {
		return ErrorResult(err.Error(), "Session state is unchanged; retry the call")
	}

	var badIdent *validate.InvalidIdentifierError
	var unsafe *validate.UnsafeStatementError
	var halluc *validate.HallucinatedReferenceError
	if errors.As(err, &badIdent) || errors.As(err, &unsafe) || errors.As(err, &halluc) {
		return ErrorResult(err.Error(), "The request was blocked by a guardrail and audited")
	}

	return nil
}
