// Package commands implements promptforge's cobra command surface,
// spec.md §6's command table, following cmd/backend/commands' per-command
// file layout and RunE/setupLogger conventions.
package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kestrel-labs/promptforge/internal/stats"
	"github.com/kestrel-labs/promptforge/pkg/cache"
	"github.com/kestrel-labs/promptforge/pkg/config"
	"github.com/kestrel-labs/promptforge/pkg/database"
	"github.com/kestrel-labs/promptforge/pkg/dedup"
	"github.com/kestrel-labs/promptforge/pkg/embeddings"
	"github.com/kestrel-labs/promptforge/pkg/ingest"
	"github.com/kestrel-labs/promptforge/pkg/llm"
)

// Verbose is bound to the root command's persistent --verbose flag.
var Verbose bool

// app bundles the components most commands need, built once per
// invocation from the resolved configuration.
type app struct {
	cfg       *config.Config
	db        *database.DB
	generator embeddings.EmbeddingGenerator
	extractor llm.Extractor
	metrics   *stats.Exporter
}

// setupLogger mirrors the teacher's cmd/backend/commands/serve.go.
func setupLogger(verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	zerolog.TimeFieldFormat = time.RFC3339
}

// newApp loads config, opens the database, and wires the embedding
// generator and LLM extractor every data-touching command needs.
func newApp(cmd *cobra.Command) (*app, error) {
	setupLogger(Verbose)

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build embedding generator: %w", err)
	}

	extractor := buildExtractor(cfg)

	var metrics *stats.Exporter
	if cfg.Monitoring.Prometheus.Enabled {
		metrics = stats.NewExporter(prometheus.DefaultRegisterer, "promptforge")
		serveMetrics(cfg.Monitoring.Prometheus.Port)
	}

	return &app{cfg: cfg, db: db, generator: generator, extractor: extractor, metrics: metrics}, nil
}

// serveMetrics starts promhttp's handler on /metrics in the background,
// following the teacher's PrometheusHandler-on-a-route convention (there
// the route hung off the gateway's fiber app; there is no such app here,
// so a bare net/http server is the right-sized replacement — the corpus
// has no lighter HTTP router for a single static route).
func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening on /metrics")
}

func (a *app) Close() {
	a.db.Close()
}

// buildGenerator wires pkg/embeddings.NewGenerator, wrapped in a
// content-addressed cache backed by Redis when configured, falling back
// to an in-process memory cache — matching the teacher's "Redis primary,
// memory fallback" cache layering (pkg/cache.MultiLayerCache).
func buildGenerator(cfg *config.Config) (embeddings.EmbeddingGenerator, error) {
	raw, err := embeddings.NewGenerator(&embeddings.GeneratorConfig{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		MaxRetries: cfg.Embedding.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	ttl, err := time.ParseDuration(cfg.Embedding.CacheTTL)
	if err != nil {
		ttl = 24 * time.Hour
	}

	var backend cache.Cache
	if redisCache, err := cache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB); err == nil {
		backend = redisCache
	} else {
		log.Warn().Err(err).Msg("redis cache unavailable, falling back to in-memory embedding cache")
		backend = cache.NewMemoryCache(10_000, ttl)
	}

	return embeddings.NewCachedGenerator(raw, backend, ttl), nil
}

// buildExtractor wires pkg/llm.Processor: a real LLM-backed Extractor
// when an API key is configured, falling back to the heuristic provider
// at the call boundary on any failure (spec.md's Non-goal note that
// "template extraction may fall back to a heuristic").
func buildExtractor(cfg *config.Config) llm.Extractor {
	heuristic := llm.NewHeuristicProvider()
	if cfg.Embedding.APIKey == "" {
		return heuristic
	}
	rc := llm.DefaultRealConfig()
	rc.APIKey = cfg.Embedding.APIKey
	real := llm.NewRealProvider(rc)
	return llm.NewProcessor(real, heuristic)
}

// newPipeline builds the dedup/persist/assign inner pipeline shared by
// the "add" and "ingest" commands and internal/ingestworker, rebuilding
// the dedup index from every fingerprint currently in the database.
func (a *app) newPipeline() (*ingest.Pipeline, error) {
	rows, err := a.db.AllFingerprints()
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	stored := make([]dedup.StoredFingerprint, len(rows))
	for i, p := range rows {
		stored[i] = dedup.StoredFingerprint{ID: p.ID, DedupHash: p.DedupHash, SimHash: p.SimHash}
	}
	idx, err := dedup.NewFromStore(a.cfg.Dedup.HammingThreshold, stored)
	if err != nil {
		return nil, fmt.Errorf("build dedup index: %w", err)
	}

	return &ingest.Pipeline{
		Store:     a.db,
		Index:     idx,
		Generator: a.generator,
		Threshold: a.cfg.Assigner.AssignmentThreshold,
	}, nil
}
