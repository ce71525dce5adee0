package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/pkg/assigner"
)

var clearEmbeddingsConfirmed bool

// ClearEmbeddingsCmd implements spec.md §6's `clear-embeddings`.
var ClearEmbeddingsCmd = &cobra.Command{
	Use:   "clear-embeddings",
	Short: "Null out all stored embeddings (for an embedding-model change)",
	Long: `Null out every prompt's embedding_vector column. This does not
touch family assignments or templates directly, but leaves every prompt
pending re-embedding on the next run/classify-worker tick or
full-classify pass. Requires confirmation.`,
	Example: `  promptforge clear-embeddings --confirm`,
	RunE:    runClearEmbeddings,
}

func init() {
	ClearEmbeddingsCmd.Flags().BoolVar(&clearEmbeddingsConfirmed, "confirm", false, "Skip the interactive confirmation prompt")
}

func runClearEmbeddings(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if !clearEmbeddingsConfirmed {
		fmt.Print("This will null out every prompt's embedding. Type \"yes\" to continue: ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	count, err := a.db.ClearAllEmbeddings()
	if err != nil {
		return fmt.Errorf("clear embeddings: %w", err)
	}
	fmt.Printf("cleared %d embeddings\n", count)
	return nil
}

// UpdateTemplatesCmd implements spec.md §6's `update-templates`.
var UpdateTemplatesCmd = &cobra.Command{
	Use:   "update-templates",
	Short: "Force the template engine to sweep all families",
	Long: `Run the template engine's create/update decision (spec.md §4.E)
against every family immediately, rather than waiting for the next
classify-worker tick's step 5.`,
	RunE: runUpdateTemplates,
}

func runUpdateTemplates(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := assigner.New(a.db, a.generator, a.extractor, nil, buildAssignerConfig(a))
	if a.metrics != nil {
		w.SetMetrics(a.metrics)
	}

	if err := w.SweepTemplates(context.Background()); err != nil {
		return fmt.Errorf("update templates: %w", err)
	}
	fmt.Println("template sweep complete")
	return nil
}
