// Package assigner implements the Incremental Assigner (component D): a
// long-running worker loop that assigns pending prompts to the nearest
// family centroid, falling back to a full clustering pass while the corpus
// is still bootstrapping. Grounded on the ticker/done-channel worker shape
// of internal/health/monitor.go, generalized from provider polling to
// spec.md §4.D's five-step tick.
package assigner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kestrel-labs/promptforge/pkg/cluster"
	"github.com/kestrel-labs/promptforge/pkg/embeddings"
	"github.com/kestrel-labs/promptforge/pkg/llm"
	"github.com/kestrel-labs/promptforge/pkg/models"
	"github.com/kestrel-labs/promptforge/pkg/template"
)

// Config holds the assigner's tunable knobs, spec.md §4.D.
type Config struct {
	TickInterval        time.Duration
	BootstrapThreshold  int
	BatchSize           int
	AssignmentThreshold float64
	ClusterConfig       cluster.Config
	TemplateCreateMin   int
	TemplateUpdateDelta int
}

// DefaultConfig returns spec.md §4.D/§4.C's production defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:        10 * time.Minute,
		BootstrapThreshold:  500,
		BatchSize:           500,
		AssignmentThreshold: 0.60,
		ClusterConfig:       cluster.DefaultConfig(),
		TemplateCreateMin:   template.DefaultCreateThreshold,
		TemplateUpdateDelta: template.DefaultUpdateDelta,
	}
}

// Store is the persistence surface the assigner needs. *database.DB
// satisfies it directly.
type Store interface {
	CountAssigned() (int64, error)
	CountPending() (int64, error)
	PendingPrompts(limit int) ([]models.Prompt, error)
	AllCentroids() (map[uuid.UUID]models.Vector, error)
	UpdatePromptEmbeddingAndFamily(id uuid.UUID, embedding models.Vector, familyID *uuid.UUID) error
	RecountFamilyMembers() error
	AllFamilies() ([]models.Family, error)
	AllPromptsWithEmbeddings() ([]models.Prompt, error)
	ApplyClusterPartition(creates []models.Family, updates []models.Family, assignments map[uuid.UUID]uuid.UUID) error

	template.Store
}

// TickOutcome reports what a single tick did, for logging and tests.
type TickOutcome string

const (
	OutcomeFullClusterPass TickOutcome = "FULL_CLUSTER_PASS"
	OutcomeSkippedBatch    TickOutcome = "SKIPPED_BATCH_TOO_SMALL"
	OutcomeAssigned        TickOutcome = "ASSIGNED"
)

// Metrics is the subset of internal/stats.Exporter the assigner reports
// to, kept as a small local interface so pkg/assigner never imports an
// internal/ package directly.
type Metrics interface {
	ObserveTick(outcome string, duration time.Duration)
	SetFamilyCounts(families, unclustered int)
	ObserveTemplateAction(bump, familyID string, major int)
}

// Worker runs the incremental-assignment loop.
type Worker struct {
	store     Store
	generator embeddings.EmbeddingGenerator
	nameFn    cluster.NameProvider
	cfg       Config
	engine    *template.Engine
	metrics   Metrics

	ticker *time.Ticker
	done   chan struct{}
}

// New builds a Worker. nameFn may be nil to fall back to "Cluster-<label>"
// names for newly discovered families.
func New(store Store, generator embeddings.EmbeddingGenerator, extractor llm.Extractor, nameFn cluster.NameProvider, cfg Config) *Worker {
	return &Worker{
		store:     store,
		generator: generator,
		nameFn:    nameFn,
		cfg:       cfg,
		engine:    template.NewEngine(store, extractor, cfg.TemplateCreateMin, cfg.TemplateUpdateDelta),
	}
}

// SetMetrics attaches a Metrics recorder; nil (the default) disables
// reporting.
func (w *Worker) SetMetrics(m Metrics) {
	w.metrics = m
}

// reportFamilyCounts reads the current family/unclustered counts and
// forwards them to the attached Metrics, if any. Errors are logged and
// swallowed since metrics reporting must never fail a tick.
func (w *Worker) reportFamilyCounts() {
	if w.metrics == nil {
		return
	}
	families, err := w.store.AllFamilies()
	if err != nil {
		log.Warn().Err(err).Msg("assigner metrics: failed to load family count")
		return
	}
	unclustered, err := w.store.CountPending()
	if err != nil {
		log.Warn().Err(err).Msg("assigner metrics: failed to load unclustered count")
		return
	}
	w.metrics.SetFamilyCounts(len(families), int(unclustered))
}

// Start launches the tick loop in a goroutine. Stop (or ctx cancellation)
// ends it after the in-flight tick completes.
func (w *Worker) Start(ctx context.Context) {
	w.ticker = time.NewTicker(w.cfg.TickInterval)
	w.done = make(chan struct{})

	go func() {
		w.runTick(ctx)
		for {
			select {
			case <-w.ticker.C:
				w.runTick(ctx)
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}()

	log.Info().Dur("interval", w.cfg.TickInterval).Msg("incremental assigner started")
}

// Stop ends the loop after its current tick finishes.
func (w *Worker) Stop() {
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.done)
	log.Info().Msg("incremental assigner stopped")
}

func (w *Worker) runTick(ctx context.Context) {
	start := time.Now()
	outcome, err := w.Tick(ctx)
	if err != nil {
		log.Error().Err(err).Msg("assigner tick failed")
		if w.metrics != nil {
			w.metrics.ObserveTick("error", time.Since(start))
		}
		return
	}
	log.Info().Str("outcome", string(outcome)).Msg("assigner tick completed")
	if w.metrics != nil {
		w.metrics.ObserveTick(string(outcome), time.Since(start))
	}
}

// AssignOnce runs the assign+recount+template-hook steps directly against
// up to limit pending prompts (every pending prompt when limit is 0),
// without the bootstrap/batch-size gates
// Tick applies — backing the `run [--limit N]` CLI command's "one-shot
// full-pipeline processing" semantics rather than the continuous
// classify-worker loop's gated tick.
func (w *Worker) AssignOnce(ctx context.Context, limit int) error {
	cfg := w.cfg
	cfg.BatchSize = limit
	scoped := &Worker{store: w.store, generator: w.generator, nameFn: w.nameFn, cfg: cfg, engine: w.engine, metrics: w.metrics}

	if err := scoped.assignBatch(ctx); err != nil {
		return err
	}
	if err := w.store.RecountFamilyMembers(); err != nil {
		return err
	}
	w.reportFamilyCounts()
	return w.runTemplateHook(ctx)
}

// Tick runs spec.md §4.D's five steps once.
func (w *Worker) Tick(ctx context.Context) (TickOutcome, error) {
	assigned, err := w.store.CountAssigned()
	if err != nil {
		return "", err
	}
	if assigned < int64(w.cfg.BootstrapThreshold) {
		if err := w.fullClusterPass(ctx); err != nil {
			return "", err
		}
		return OutcomeFullClusterPass, nil
	}

	pending, err := w.store.CountPending()
	if err != nil {
		return "", err
	}
	if pending < int64(w.cfg.BatchSize) {
		return OutcomeSkippedBatch, nil
	}

	if err := w.assignBatch(ctx); err != nil {
		return "", err
	}
	if err := w.store.RecountFamilyMembers(); err != nil {
		return "", err
	}
	w.reportFamilyCounts()
	if err := w.runTemplateHook(ctx); err != nil {
		return "", err
	}
	return OutcomeAssigned, nil
}
