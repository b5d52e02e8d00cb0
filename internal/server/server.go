// Package server hosts the engine's MCP surface: a stdio server the
// workflow tools are registered on, with request logging middleware.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverName is the implementation name advertised during the MCP handshake.
const serverName = "mapgate"

// Server wraps the MCP server carrying the workflow tool surface.
type Server struct {
	mcp    *mcp.Server
	logger *slog.Logger
}

// New creates the mapgate MCP server at the given version.
func New(version string, logger *slog.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    serverName,
		Version: version,
	}

	return &Server{
		mcp:    mcp.NewServer(impl, nil),
		logger: logger,
	}
}

// Run serves on stdio until the client disconnects or ctx is cancelled. The
// MCP client on the other end is the human-facing side of the workflow; the
// engine never initiates anything on its own.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server for tool registration.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Setup installs the logging middleware. Tool calls that cross the slow
// threshold (warehouse-touching transitions usually do) are logged at WARN.
func (s *Server) Setup() {
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger))
}
