package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/models"
)

// QueryAuditInput defines the input schema for the query_audit tool.
type QueryAuditInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session whose ledger to read"`
	Component string `json:"component,omitempty" jsonschema:"Filter by emitting component"`
	Action    string `json:"action,omitempty" jsonschema:"Filter by action name"`
	MinRisk   string `json:"min_risk,omitempty" jsonschema:"Minimum risk level: LOW MEDIUM HIGH or CRITICAL"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max events to return, default all"`
}

// NewQueryAuditHandler creates the query_audit tool handler. Events come
// back in sequence order; the ledger itself is append-only.
func NewQueryAuditHandler(deps *Dependencies) mcp.ToolHandlerFor[QueryAuditInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryAuditInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.SessionID == "" {
			return ErrorResult("session_id cannot be empty", "Pass the ID returned by create_session"), nil, nil
		}

		var minRisk models.RiskLevel
		switch input.MinRisk {
		case "", string(models.RiskLow):
			minRisk = models.RiskLow
		case string(models.RiskMedium), string(models.RiskHigh), string(models.RiskCritical):
			minRisk = models.RiskLevel(input.MinRisk)
		default:
			return ErrorResult("unknown risk level "+input.MinRisk, "Use LOW, MEDIUM, HIGH or CRITICAL"), nil, nil
		}

		events, err := deps.Orchestrator.QueryAudit(ctx, input.SessionID, audit.Filter{
			Component: input.Component,
			Action:    input.Action,
			MinRisk:   minRisk,
			Limit:     input.Limit,
		})
		if err != nil {
			return ErrorResult(err.Error(), "Check the session ID"), nil, nil
		}

		return JSONResult(map[string]any{"events": events, "count": len(events)}), nil, nil
	}
}
