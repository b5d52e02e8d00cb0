// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/mkessler/mapgate-go/internal/workflow"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Orchestrator *workflow.Orchestrator
	Logger       *slog.Logger
}
