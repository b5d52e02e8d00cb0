// Package main provides the entry point for the mapgate MCP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/config"
	"github.com/mkessler/mapgate-go/internal/connector"
	"github.com/mkessler/mapgate-go/internal/db"
	"github.com/mkessler/mapgate-go/internal/proposer"
	"github.com/mkessler/mapgate-go/internal/server"
	"github.com/mkessler/mapgate-go/internal/state"
	"github.com/mkessler/mapgate-go/internal/tools"
	"github.com/mkessler/mapgate-go/internal/workflow"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("mapgate starting",
		"version", version,
		"surrealdb_url", cfg.SurrealDBURL,
		"proposer", cfg.ProposerKind,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	deps := workflow.Deps{
		Store:          state.NewStore(),
		Logger:         logger,
		ExecuteTimeout: cfg.ExecuteTimeout,
	}

	// Backends: SurrealDB when configured, in-memory otherwise. The
	// in-memory mode loses the ledger on restart and exists for local
	// development only.
	if cfg.SurrealDBURL != "" {
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		dbClient, err := db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("closing database connection")
			_ = dbClient.Close(ctx)
		}()

		if err := dbClient.InitSchema(ctx); err != nil {
			logger.Error("failed to initialize database schema", "error", err)
			os.Exit(1)
		}

		conn, err := connector.NewSurrealConnector(ctx, dbClient)
		if err != nil {
			logger.Error("failed to initialize warehouse catalog", "error", err)
			os.Exit(1)
		}

		deps.Ledger = audit.NewSurrealLedger(dbClient)
		deps.Connector = conn
		deps.SessionSink = dbClient
	} else {
		logger.Warn("no database configured, using volatile in-memory backends")
		deps.Ledger = audit.NewMemoryLedger()
		deps.Connector = connector.NewMemoryConnector()
	}

	// Proposer: deterministic heuristic by default, LLM when asked for.
	switch cfg.ProposerKind {
	case config.ProposerLLM:
		llmProposer, err := proposer.NewLLM(cfg)
		if err != nil {
			logger.Error("failed to create LLM proposer", "error", err)
			os.Exit(1)
		}
		logger.Info("proposer initialized", "kind", cfg.ProposerKind, "model", llmProposer.Model())
		deps.Proposer = llmProposer
	default:
		deps.Proposer = proposer.NewHeuristicProposer()
		logger.Info("proposer initialized", "kind", config.ProposerHeuristic)
	}

	orchestrator := workflow.New(deps)

	// Create and setup server
	srv := server.New(version, logger)
	srv.Setup()

	toolDeps := &tools.Dependencies{
		Orchestrator: orchestrator,
		Logger:       logger,
	}
	tools.RegisterAll(srv.MCPServer(), toolDeps)
	logger.Info("tools registered")

	logger.Info("server ready, awaiting connections")

	// Run server (blocks until disconnect or context cancelled)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
