package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkessler/mapgate-go/internal/models"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List workflow sessions",
	Long: `List persisted workflow sessions with their current stage, newest first.

Examples:
  mapgatectl sessions
  mapgatectl sessions --limit 10`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 50, "max sessions")
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rows, err := dbClient.QueryListSessions(ctx, sessionsLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(rows) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Printf("Sessions (%d):\n\n", len(rows))
	for _, r := range rows {
		stage := r.Stage
		if models.Stage(r.Stage).Terminal() {
			stage = defaultTheme.riskStyle(models.RiskHigh).Render(r.Stage)
		}
		fmt.Printf("- %s  %s  %s\n", r.ID, r.Created.Format(time.RFC3339), stage)
	}
	return nil
}
