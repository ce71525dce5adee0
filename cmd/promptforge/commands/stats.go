package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StatsCmd implements spec.md §6's `stats` read-only report.
var StatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus-wide counts",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.db.CountPending()
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}
	assigned, err := a.db.CountAssigned()
	if err != nil {
		return fmt.Errorf("count assigned: %w", err)
	}
	families, err := a.db.AllFamilies()
	if err != nil {
		return fmt.Errorf("list families: %w", err)
	}

	needingUpdate := 0
	for _, f := range families {
		if f.NeedsTemplateUpdate {
			needingUpdate++
		}
	}

	fmt.Printf("pending:            %d\n", pending)
	fmt.Printf("assigned:           %d\n", assigned)
	fmt.Printf("families:           %d\n", len(families))
	fmt.Printf("needing template update: %d\n", needingUpdate)
	return nil
}
