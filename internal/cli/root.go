// Package cli provides the operator command-line interface for mapgate.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkessler/mapgate-go/internal/config"
	"github.com/mkessler/mapgate-go/internal/db"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mapgatectl",
	Short: "Operator tooling for the mapgate workflow engine",
	Long: `Mapgatectl inspects and administers a mapgate deployment: it reads the
append-only audit ledger, lists workflow sessions, and seeds the demo
warehouse catalog.

All commands talk directly to the SurrealDB instance the engine writes to,
configured via MAPGATE_SURREALDB_URL and friends.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if cfg.SurrealDBURL == "" {
			return fmt.Errorf("MAPGATE_SURREALDB_URL is not set; mapgatectl needs the engine's database")
		}

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(wipeCmd)
}
