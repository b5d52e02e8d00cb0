package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var wipeYes bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all engine data (development only)",
	Long: `Delete all sessions, audit events and sequence counters from the database.

This defeats the append-only audit guarantee and exists only for resetting
development environments. Requires --yes.`,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "confirm deletion")
}

func runWipe(cmd *cobra.Command, args []string) error {
	if !wipeYes {
		return fmt.Errorf("refusing to wipe without --yes")
	}

	if err := dbClient.WipeData(context.Background()); err != nil {
		return fmt.Errorf("wipe data: %w", err)
	}

	fmt.Println("All engine data deleted.")
	return nil
}
