package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkessler/mapgate-go/internal/audit"
	"github.com/mkessler/mapgate-go/internal/models"
)

var (
	auditComponent string
	auditAction    string
	auditMinRisk   string
	auditLimit     int
	auditJSON      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "Show a session's audit ledger",
	Long: `Show the append-only audit ledger for one workflow session, in sequence
order.

Examples:
  mapgatectl audit 7f3c...
  mapgatectl audit 7f3c... --min-risk HIGH
  mapgatectl audit 7f3c... --component validator
  mapgatectl audit 7f3c... --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditComponent, "component", "c", "", "filter by emitting component")
	auditCmd.Flags().StringVarP(&auditAction, "action", "a", "", "filter by action name")
	auditCmd.Flags().StringVarP(&auditMinRisk, "min-risk", "r", "", "minimum risk level (LOW, MEDIUM, HIGH, CRITICAL)")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 0, "max events (0 = all)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "emit raw JSON")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sessionID := args[0]

	var minRisk models.RiskLevel
	if auditMinRisk != "" {
		switch models.RiskLevel(auditMinRisk) {
		case models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical:
			minRisk = models.RiskLevel(auditMinRisk)
		default:
			return fmt.Errorf("unknown risk level %q", auditMinRisk)
		}
	}

	ledger := audit.NewSurrealLedger(dbClient)
	events, err := ledger.Query(ctx, sessionID, audit.Filter{
		Component: auditComponent,
		Action:    auditAction,
		MinRisk:   minRisk,
		Limit:     auditLimit,
	})
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}

	if auditJSON {
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(events) == 0 {
		fmt.Println("No audit events found.")
		return nil
	}

	printAuditEvents(sessionID, events)
	return nil
}

func printAuditEvents(sessionID string, events []models.AuditEvent) {
	width := terminalWidth()

	fmt.Printf("Audit ledger for session %s (%d events)\n\n", sessionID, len(events))
	for _, e := range events {
		risk := defaultTheme.riskStyle(e.Risk).Render(fmt.Sprintf("%-8s", e.Risk))
		line := fmt.Sprintf("%4d  %s  %s  %-14s %s",
			e.Sequence, e.Timestamp.Format(time.RFC3339), risk, e.Component, e.Action)
		fmt.Println(line)

		if verbose && len(e.Context) > 0 {
			data, err := json.Marshal(e.Context)
			if err != nil {
				continue
			}
			ctxLine := string(data)
			if len(ctxLine) > width-8 && width > 11 {
				ctxLine = ctxLine[:width-11] + "..."
			}
			fmt.Println(defaultTheme.hintStyle().Render("      " + ctxLine))
		}
	}
}
