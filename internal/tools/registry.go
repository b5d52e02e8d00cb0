package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - test/placeholder
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Session lifecycle
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_session",
		Description: "Create or resume a mapping workflow session",
	}, NewCreateSessionHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_status",
		Description: "Show a session's current stage and stored artifacts",
	}, NewSessionStatusHandler(deps))

	// Discovery and schema capture
	mcp.AddTool(server, &mcp.Tool{
		Name:        "discover_catalog",
		Description: "List warehouse datasets and tables (read-only)",
	}, NewDiscoverHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_schemas",
		Description: "Capture source and target table schemas with sample rows",
	}, NewAnalyzeSchemasHandler(deps))

	// Mapping proposal and review
	mcp.AddTool(server, &mcp.Tool{
		Name:        "propose_mappings",
		Description: "Propose column mappings with confidence-based policy decisions",
	}, NewProposeMappingsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "approve_mappings",
		Description: "Apply reviewer decisions to proposed mappings",
	}, NewApproveMappingsHandler(deps))

	// Statement pipeline
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_statement",
		Description: "Generate and validate the transformation statement from approved mappings",
	}, NewGenerateStatementHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dry_run",
		Description: "Validate the generated statement against the warehouse without writing data",
	}, NewDryRunHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "execute",
		Description: "Execute the validated statement (terminal, requires a passed dry run)",
	}, NewExecuteHandler(deps))

	// Observability
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_audit",
		Description: "Read a session's audit ledger with component, action and risk filters",
	}, NewQueryAuditHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "engine_stats",
		Description: "Report engine runtime statistics",
	}, NewEngineStatsHandler(deps))
}
