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

	"github.com/kestrel-labs/promptforge/internal/ingestworker"
)

var (
	workerMode     string
	workerDir      string
	workerInterval time.Duration
	workerState    string
)

// IngestWorkerCmd implements spec.md §6's long-running Ingestion Worker
// (component L): the same {file,portkey} sources the `ingest` command
// runs once, but looped on a ticker with a persisted checkpoint.
var IngestWorkerCmd = &cobra.Command{
	Use:   "ingest-worker",
	Short: "Start the continuous ingestion loop",
	Long: `Start the long-running ingestion worker: on each tick (and, in
--mode=file, on each new *.jsonl file) fetch everything since the last
checkpoint, dedup and persist it through the same inner pipeline the
"add"/"ingest" commands use, and advance the checkpoint only once the
whole tick succeeds.`,
	Example: `  promptforge ingest-worker --mode=file --dir ./exports --interval 1m
  promptforge ingest-worker --mode=portkey --dir https://logs.example.com`,
	RunE: runIngestWorker,
}

func init() {
	IngestWorkerCmd.Flags().StringVar(&workerMode, "mode", "file", "Ingestion source: file or portkey")
	IngestWorkerCmd.Flags().StringVar(&workerDir, "dir", "", "Directory to watch (file mode) or log-export base URL (portkey mode)")
	IngestWorkerCmd.Flags().DurationVar(&workerInterval, "interval", 0, "Tick interval (0 = use the worker default)")
	IngestWorkerCmd.Flags().StringVar(&workerState, "state", "", "Checkpoint file path (empty = use the worker default)")
}

func runIngestWorker(cmd *cobra.Command, args []string) error {
	if workerDir == "" {
		return fmt.Errorf("--dir is required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.newPipeline()
	if err != nil {
		return err
	}

	cfg := ingestworker.Config{Interval: workerInterval, StatePath: workerState}

	var logClient *ingestworker.LogExportClient
	var watcher *ingestworker.Watcher

	switch workerMode {
	case "file":
		cfg.Mode = ingestworker.ModeDirectory
		cfg.WatchDir = workerDir
		watcher, err = ingestworker.NewWatcher(workerDir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", workerDir, err)
		}
	case "portkey":
		cfg.Mode = ingestworker.ModeLogExport
		cfg.LogExportCfg = ingestworker.LogExportConfig{BaseURL: workerDir}
		logClient = ingestworker.NewLogExportClient(cfg.LogExportCfg)
	default:
		return fmt.Errorf("unknown --mode %q (want file or portkey)", workerMode)
	}

	w := ingestworker.New(cfg, pipeline, logClient, watcher)
	if a.metrics != nil {
		w.SetMetrics(a.metrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	log.Info().Str("mode", workerMode).Msg("ingest-worker running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	w.Stop()
	log.Info().Msg("ingest-worker stopped")
	return nil
}
