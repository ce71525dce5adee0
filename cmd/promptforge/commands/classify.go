package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/pkg/assigner"
)

// FullClassifyCmd implements spec.md §6's `full-classify`.
var FullClassifyCmd = &cobra.Command{
	Use:   "full-classify",
	Short: "Force a full clustering pass regardless of the bootstrap gate",
	Long: `Re-embed any un-embedded prompts, re-run HDBSCAN-style clustering
over the whole corpus, and reconcile the clusters with the existing
families (a cluster reuses the family that held most of its members, or
gets a new one; no family is deleted). Use this
after an embedding-model change (following clear-embeddings) or to force
a re-cluster outside the normal bootstrap gate.`,
	RunE: runFullClassify,
}

var (
	classifyInterval  time.Duration
	classifyBatchSize int
)

// ClassifyWorkerCmd implements spec.md §6's
// `classify-worker [--interval M] [--batch-size N]`.
var ClassifyWorkerCmd = &cobra.Command{
	Use:   "classify-worker",
	Short: "Start the incremental-assignment loop",
	Long: `Start the long-running incremental assigner: on each tick, run
the bootstrap/batch-size gates and either a full clustering pass or a
nearest-centroid assignment batch, per spec.md §4.D.`,
	Example: `  promptforge classify-worker --interval 5m --batch-size 200`,
	RunE:    runClassifyWorker,
}

func init() {
	ClassifyWorkerCmd.Flags().DurationVar(&classifyInterval, "interval", 0, "Tick interval (0 = use config default)")
	ClassifyWorkerCmd.Flags().IntVar(&classifyBatchSize, "batch-size", 0, "Batch size (0 = use config default)")
}

func buildAssignerConfig(a *app) assigner.Config {
	cfg := assigner.DefaultConfig()
	cfg.BootstrapThreshold = a.cfg.Assigner.BootstrapThreshold
	cfg.AssignmentThreshold = a.cfg.Assigner.AssignmentThreshold
	cfg.ClusterConfig.MinClusterSize = a.cfg.Cluster.MinClusterSize
	cfg.ClusterConfig.MinSamples = a.cfg.Cluster.MinSamples
	cfg.ClusterConfig.ClusterSelectionEpsilon = a.cfg.Cluster.ClusterSelectionEpsilon
	cfg.TemplateCreateMin = a.cfg.Template.CreateThreshold
	cfg.TemplateUpdateDelta = a.cfg.Template.UpdateDelta
	if interval, err := time.ParseDuration(a.cfg.Assigner.TickInterval); err == nil && interval > 0 {
		cfg.TickInterval = interval
	}
	cfg.BatchSize = a.cfg.Assigner.BatchSize
	return cfg
}

func runFullClassify(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := assigner.New(a.db, a.generator, a.extractor, nil, buildAssignerConfig(a))
	if a.metrics != nil {
		w.SetMetrics(a.metrics)
	}

	if err := w.FullClassify(context.Background()); err != nil {
		return fmt.Errorf("full classify: %w", err)
	}
	fmt.Println("full classification complete")
	return nil
}

func runClassifyWorker(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := buildAssignerConfig(a)
	if classifyInterval > 0 {
		cfg.TickInterval = classifyInterval
	}
	if classifyBatchSize > 0 {
		cfg.BatchSize = classifyBatchSize
	}

	w := assigner.New(a.db, a.generator, a.extractor, nil, cfg)
	if a.metrics != nil {
		w.SetMetrics(a.metrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	log.Info().Dur("interval", cfg.TickInterval).Int("batch_size", cfg.BatchSize).Msg("classify-worker running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	w.Stop()
	log.Info().Msg("classify-worker stopped")
	return nil
}
