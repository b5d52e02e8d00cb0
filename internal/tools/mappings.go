package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mkessler/mapgate-go/internal/workflow"
)

// ProposeMappingsInput defines the input schema for the propose_mappings tool.
type ProposeMappingsInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session with analyzed schemas"`
}

// NewProposeMappingsHandler creates the propose_mappings tool handler.
// Candidates referencing unknown columns are quarantined and reported in the
// blocked list rather than silently dropped.
func NewProposeMappingsHandler(deps *Dependencies) mcp.ToolHandlerFor[ProposeMappingsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ProposeMappingsInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		proposal, err := deps.Orchestrator.ProposeMappings(ctx, input.SessionID)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("mapping proposal failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Mapping proposal failed", "Check proposer availability and retry"), nil, nil
		}

		deps.Logger.Info("mappings proposed", "session_id", input.SessionID,
			"candidates", len(proposal.Candidates), "blocked", len(proposal.Blocked))
		return JSONResult(proposal), nil, nil
	}
}

// SelectionInput is one reviewer decision inside approve_mappings.
type SelectionInput struct {
	TargetColumn string `json:"target_column" jsonschema:"required,Target column the decision applies to"`
	Approve      bool   `json:"approve" jsonschema:"true to approve the candidate, false to reject it"`
	Note         string `json:"note,omitempty" jsonschema:"Optional reviewer note"`
}

// ApproveMappingsInput defines the input schema for the approve_mappings tool.
type ApproveMappingsInput struct {
	SessionID  string           `json:"session_id" jsonschema:"required,Session with proposed mappings"`
	Selections []SelectionInput `json:"selections,omitempty" jsonschema:"Reviewer decisions for candidates in the review band"`
}

// NewApproveMappingsHandler creates the approve_mappings tool handler.
// The session advances only once every candidate is resolved.
func NewApproveMappingsHandler(deps *Dependencies) mcp.ToolHandlerFor[ApproveMappingsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ApproveMappingsInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		selections := make([]workflow.Selection, len(input.Selections))
		for i, s := range input.Selections {
			selections[i] = workflow.Selection{TargetColumn: s.TargetColumn, Approve: s.Approve, Note: s.Note}
		}

		result, err := deps.Orchestrator.ApproveMappings(ctx, input.SessionID, selections)
		if err != nil {
			if res := resultForError(err); res != nil {
				return res, nil, nil
			}
			deps.Logger.Error("mapping approval failed", "session_id", input.SessionID, "error", err)
			return ErrorResult("Mapping approval failed", err.Error()), nil, nil
		}

		deps.Logger.Info("mappings reviewed", "session_id", input.SessionID,
			"approved", len(result.Approved), "rejected", len(result.Rejected),
			"pending", len(result.Pending), "stage", result.Stage)
		return JSONResult(result), nil, nil
	}
}
