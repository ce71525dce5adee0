package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/pkg/assigner"
)

var runLimit int

// RunCmd implements spec.md §6's `run [--limit N]`.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "One-shot full-pipeline processing of up to N pending prompts",
	Long: `Run one pass of the classification pipeline over the pending
queue: embed (if needed), assign to the nearest family, then sweep the
template engine — without the continuous classify-worker loop's
bootstrap/batch-size gates.`,
	Example: `  promptforge run --limit 200`,
	RunE:    runRun,
}

func init() {
	RunCmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum pending prompts to process (0 = all)")
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := assigner.DefaultConfig()
	cfg.AssignmentThreshold = a.cfg.Assigner.AssignmentThreshold
	cfg.ClusterConfig.MinClusterSize = a.cfg.Cluster.MinClusterSize
	cfg.ClusterConfig.MinSamples = a.cfg.Cluster.MinSamples
	cfg.ClusterConfig.ClusterSelectionEpsilon = a.cfg.Cluster.ClusterSelectionEpsilon
	cfg.TemplateCreateMin = a.cfg.Template.CreateThreshold
	cfg.TemplateUpdateDelta = a.cfg.Template.UpdateDelta

	w := assigner.New(a.db, a.generator, a.extractor, nil, cfg)
	if a.metrics != nil {
		w.SetMetrics(a.metrics)
	}

	if err := w.AssignOnce(context.Background(), runLimit); err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}
	fmt.Println("run complete")
	return nil
}
