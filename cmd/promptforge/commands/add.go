package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/datatypes"

	"github.com/kestrel-labs/promptforge/pkg/dedup"
)

// AddCmd implements spec.md §6's `add <text>`.
var AddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Dedup, persist, and (if bootstrapped) assign a single prompt",
	Long: `Add a single prompt to the corpus.

Runs the shared ingest pipeline: deduplicate against every known
fingerprint, persist if new, and — once the corpus has cleared the
bootstrap threshold — assign it to its nearest family immediately rather
than waiting for the next classify-worker tick.`,
	Example: `  promptforge add "Write a haiku about the ocean"`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.newPipeline()
	if err != nil {
		return err
	}

	result, err := pipeline.Add(context.Background(), args[0], datatypes.JSON(nil))
	if err != nil {
		return fmt.Errorf("add prompt: %w", err)
	}

	switch result.Outcome {
	case dedup.Kept:
		log.Info().Str("prompt_id", result.PromptID.String()).Msg("prompt saved")
		fmt.Printf("saved: %s\n", result.PromptID)
	case dedup.ExactDuplicate:
		fmt.Printf("exact duplicate of %s\n", result.MatchID)
	case dedup.NearDuplicate:
		fmt.Printf("near duplicate of %s\n", result.MatchID)
	}
	return nil
}
