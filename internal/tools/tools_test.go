//go:build integration

package tools_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/connector"
	"github.com/mkessler/mapgate-go/internal/models"
	"github.com/mkessler/mapgate-go/internal/proposer"
	"github.com/mkessler/mapgate-go/internal/state"
	"github.com/mkessler/mapgate-go/internal/tools"
	"github.com/mkessler/mapgate-go/internal/workflow"
)

// testLogger creates a logger for test visibility.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestOrchestrator wires a full engine over in-memory backends so the
// tools exercise real transitions, not stubs.
func newTestOrchestrator(logger *slog.Logger) *workflow.Orchestrator {
	conn := connector.NewMemoryConnector()
	conn.AddSchema(models.SchemaDescriptor{
		Dataset: "sales",
		Table:   "orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "INT64"},
			{Name: "amount", Type: "FLOAT64"},
		},
	})
	conn.AddSchema(models.SchemaDescriptor{
		Dataset: "dw",
		Table:   "fact_orders",
		Columns: []models.ColumnDescriptor{
			{Name: "order_id", Type: "INT64"},
			{Name: "amount_usd", Type: "FLOAT64"},
		},
	})

	return workflow.New(workflow.Deps{
		Store:     state.NewStore(),
		Ledger:    audit.NewMemoryLedger(),
		Connector: conn,
		Proposer:  proposer.NewHeuristicProposer(),
		Logger:    logger,
	})
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	logger := testLogger()

	impl := &mcp.Implementation{
		Name:    "test-mapgate",
		Version: "0.0.1-test",
	}
	server := mcp.NewServer(impl, nil)

	deps := &tools.Dependencies{
		Orchestrator: newTestOrchestrator(logger),
		Logger:       logger,
	}
	tools.RegisterAll(server, deps)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx, serverTransport)
	}()

	// Give server time to start
	time.Sleep(50 * time.Millisecond)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err, "client should connect successfully")
	defer session.Close()

	t.Run("tools/list returns the full surface", func(t *testing.T) {
		result, err := session.ListTools(ctx, nil)
		require.NoError(t, err)
		require.Len(t, result.Tools, 12)

		var pingTool *mcp.Tool
		for _, tool := range result.Tools {
			if tool.Name == "ping" {
				pingTool = tool
				break
			}
		}
		require.NotNil(t, pingTool, "ping tool should exist")
		assert.Equal(t, "Test tool - responds with pong or echoes input", pingTool.Description)
	})

	t.Run("ping returns pong", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ping",
			Arguments: map[string]any{},
		})
		require.NoError(t, err)
		require.Len(t, result.Content, 1)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")
		assert.Equal(t, "pong", textContent.Text)
		assert.False(t, result.IsError)
	})

	t.Run("ping echoes input", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ping",
			Arguments: map[string]any{"echo": "hello world"},
		})
		require.NoError(t, err)
		require.Len(t, result.Content, 1)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")
		assert.Equal(t, "hello world", textContent.Text)
		assert.False(t, result.IsError)
	})

	t.Run("create_session and session_status round trip", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "create_session",
			Arguments: map[string]any{"session_id": "tool-test-session"},
		})
		require.NoError(t, err)
		require.False(t, result.IsError)

		result, err = session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "session_status",
			Arguments: map[string]any{"session_id": "tool-test-session"},
		})
		require.NoError(t, err)
		require.False(t, result.IsError)
		require.Len(t, result.Content, 1)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")

		var status struct {
			Session struct {
				ID    string `json:"id"`
				Stage string `json:"stage"`
			} `json:"session"`
			Terminal bool `json:"terminal"`
		}
		require.NoError(t, json.Unmarshal([]byte(textContent.Text), &status))
		assert.Equal(t, "tool-test-session", status.Session.ID)
		assert.Equal(t, string(models.StageDiscovery), status.Session.Stage)
		assert.False(t, status.Terminal)
	})

	t.Run("discover_catalog lists registered tables", func(t *testing.T) {
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "discover_catalog",
			Arguments: map[string]any{"session_id": "tool-test-session"},
		})
		require.NoError(t, err)
		require.False(t, result.IsError)
		require.Len(t, result.Content, 1)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")
		assert.Contains(t, textContent.Text, "sales")
		assert.Contains(t, textContent.Text, "fact_orders")
	})

	t.Run("out-of-order call returns a hinted error result", func(t *testing.T) {
		// Execute before anything else has run: the orchestrator refuses
		// and the handler maps it to a recoverable tool error.
		result, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "execute",
			Arguments: map[string]any{"session_id": "tool-test-session"},
		})
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.NotEmpty(t, result.Content)

		textContent, ok := result.Content[0].(*mcp.TextContent)
		require.True(t, ok, "content should be TextContent")
		assert.Contains(t, textContent.Text, "session_status")
	})

	// Cleanup
	cancel()

	select {
	case err := <-serverErr:
		if err != nil {
			t.Logf("server stopped with: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("server did not stop within timeout")
	}
}
