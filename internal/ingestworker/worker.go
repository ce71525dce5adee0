package ingestworker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrel-labs/promptforge/pkg/dedup"
	"github.com/kestrel-labs/promptforge/pkg/ingest"
)

// Mode selects where Worker pulls new prompts from.
type Mode int

const (
	// ModeLogExport polls the external log-export HTTP protocol (spec.md §6).
	ModeLogExport Mode = iota
	// ModeDirectory watches a local directory of *.jsonl files.
	ModeDirectory
)

// Config configures the ingestion worker loop.
type Config struct {
	Mode         Mode
	Interval     time.Duration
	StatePath    string
	WatchDir     string
	LogExportCfg LogExportConfig
}

// DefaultInterval matches the original worker's default 10-minute tick.
const DefaultInterval = 10 * time.Minute

// Metrics is the subset of internal/stats.Exporter the ingestion worker
// reports to, kept as a local interface so this package never imports a
// sibling internal/ package directly.
type Metrics interface {
	ObserveIngest(source string)
	ObserveDedup(outcome string)
}

// Worker runs a single cooperative loop: on each tick (and, in directory
// mode, on each filesystem notification) it fetches new records since the
// last checkpoint, runs them through pkg/ingest.Pipeline one at a time,
// and advances the checkpoint only if the whole tick succeeds. Grounded
// on original_source/packages/ingestion/worker.py's run_worker loop and
// internal/health/monitor.go's ticker/done-channel shape.
type Worker struct {
	cfg       Config
	pipeline  *ingest.Pipeline
	logClient *LogExportClient
	watcher   *Watcher
	metrics   Metrics

	ticker *time.Ticker
	done   chan struct{}
}

// New builds a Worker. logClient may be nil in ModeDirectory; watcher may
// be nil in ModeLogExport.
func New(cfg Config, pipeline *ingest.Pipeline, logClient *LogExportClient, watcher *Watcher) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	return &Worker{
		cfg:       cfg,
		pipeline:  pipeline,
		logClient: logClient,
		watcher:   watcher,
		done:      make(chan struct{}),
	}
}

// SetMetrics attaches a Metrics recorder; nil (the default) disables
// reporting.
func (w *Worker) SetMetrics(m Metrics) {
	w.metrics = m
}

func (w *Worker) source() string {
	if w.cfg.Mode == ModeDirectory {
		return "file"
	}
	return "portkey"
}

// Start begins the loop in a goroutine and returns immediately.
func (w *Worker) Start(ctx context.Context) {
	w.ticker = time.NewTicker(w.cfg.Interval)

	if w.cfg.Mode == ModeDirectory && w.watcher != nil {
		go w.watcher.Run(ctx)
	}

	go func() {
		w.runTick(ctx)

		for {
			select {
			case <-w.ticker.C:
				w.runTick(ctx)
			case <-w.watchEvents():
				w.runTick(ctx)
			case <-w.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Dur("interval", w.cfg.Interval).Msg("ingestion worker started")
}

// Stop halts the loop.
func (w *Worker) Stop() {
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.done)
	log.Info().Msg("ingestion worker stopped")
}

func (w *Worker) watchEvents() <-chan struct{} {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Events
}

// runTick executes one ingestion window. Per-record failures are logged
// and skipped so one bad record never aborts the rest of the batch, but a
// failure fetching the record set at all aborts the tick without saving
// state, so the next tick retries the same window.
func (w *Worker) runTick(ctx context.Context) {
	state := LoadState(w.cfg.StatePath)

	records, err := w.fetchRecords(ctx, state.LastRunTime)
	if err != nil {
		log.Error().Err(err).Msg("ingestion tick: fetch failed, window will be retried")
		return
	}

	saved, exactDup, nearDup, failed := 0, 0, 0, 0
	for _, r := range records {
		if w.metrics != nil {
			w.metrics.ObserveIngest(w.source())
		}
		result, err := w.pipeline.Add(ctx, r.Text, r.Metadata)
		if err != nil {
			failed++
			log.Error().Err(err).Msg("ingestion tick: failed to add record, continuing")
			continue
		}
		var outcomeLabel string
		switch result.Outcome {
		case dedup.Kept:
			saved++
			outcomeLabel = "saved"
		case dedup.ExactDuplicate:
			exactDup++
			outcomeLabel = "exact_duplicate"
		case dedup.NearDuplicate:
			nearDup++
			outcomeLabel = "near_duplicate"
		}
		if w.metrics != nil {
			w.metrics.ObserveDedup(outcomeLabel)
		}
	}

	log.Info().
		Int("saved", saved).
		Int("exact_duplicate", exactDup).
		Int("near_duplicate", nearDup).
		Int("failed", failed).
		Msg("ingestion tick complete")

	newState := State{LastRunTime: time.Now().UTC()}
	if err := SaveState(w.cfg.StatePath, newState); err != nil {
		log.Error().Err(err).Msg("ingestion tick: failed to save checkpoint")
	}
}

func (w *Worker) fetchRecords(ctx context.Context, since time.Time) ([]Record, error) {
	switch w.cfg.Mode {
	case ModeDirectory:
		return ReadDirSince(w.cfg.WatchDir, since)
	default:
		body, err := w.logClient.FetchSince(ctx, since)
		if err != nil {
			return nil, err
		}
		return ParseJSONLines(body)
	}
}
