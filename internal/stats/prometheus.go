// Package stats exposes Prometheus metrics for the ingestion and
// classification pipeline, adapted from the teacher's
// PrometheusExporter (a request/latency/cost exporter for an LLM gateway)
// down to the gauges and counters spec.md's own sections name: dedup
// outcomes, tick outcomes, family/template counts.
package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Exporter holds every Prometheus collector the pipeline updates.
type Exporter struct {
	promptsIngested   *prometheus.CounterVec
	dedupOutcomes     *prometheus.CounterVec
	assignerTicks     *prometheus.CounterVec
	assignerTickSecs  prometheus.Histogram
	familiesTotal     prometheus.Gauge
	unclusteredTotal  prometheus.Gauge
	templatesCreated  *prometheus.CounterVec
	templateVersion   *prometheus.GaugeVec
}

// NewExporter registers every collector under namespace (defaulting to
// "promptforge") against reg, following the teacher's
// NewPrometheusExporter. Pass prometheus.DefaultRegisterer in production;
// tests pass a fresh prometheus.NewRegistry() so repeated construction
// doesn't collide on the global registry.
func NewExporter(reg prometheus.Registerer, namespace string) *Exporter {
	if namespace == "" {
		namespace = "promptforge"
	}
	promauto := promauto.With(reg)

	return &Exporter{
		promptsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompts_ingested_total",
				Help:      "Total prompts ingested, by source.",
			},
			[]string{"source"},
		),
		dedupOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dedup_outcomes_total",
				Help:      "Deduplication outcomes: saved, exact_duplicate, near_duplicate.",
			},
			[]string{"outcome"},
		),
		assignerTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assigner_ticks_total",
				Help:      "Incremental assigner ticks, by outcome.",
			},
			[]string{"outcome"},
		),
		assignerTickSecs: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assigner_tick_duration_seconds",
				Help:      "Duration of a single assigner tick.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		familiesTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "families_total",
				Help:      "Current number of families.",
			},
		),
		unclusteredTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "unclustered_prompts_total",
				Help:      "Prompts with no family assignment after the latest tick.",
			},
		),
		templatesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "templates_created_total",
				Help:      "Template versions created, by engine action (CREATE or UPDATE).",
			},
			[]string{"bump"},
		),
		templateVersion: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "template_active_major_version",
				Help:      "Active template's major version, by family.",
			},
			[]string{"family_id"},
		),
	}
}

// ObserveIngest records one ingested prompt from source.
func (e *Exporter) ObserveIngest(source string) {
	e.promptsIngested.WithLabelValues(source).Inc()
}

// ObserveDedup records a dedup outcome ("saved", "exact_duplicate", or
// "near_duplicate").
func (e *Exporter) ObserveDedup(outcome string) {
	e.dedupOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveTick records an assigner tick's outcome and duration.
func (e *Exporter) ObserveTick(outcome string, duration time.Duration) {
	e.assignerTicks.WithLabelValues(outcome).Inc()
	e.assignerTickSecs.Observe(duration.Seconds())
}

// SetFamilyCounts updates the current family/unclustered gauges, typically
// after a recount.
func (e *Exporter) SetFamilyCounts(families, unclustered int) {
	e.familiesTotal.Set(float64(families))
	e.unclusteredTotal.Set(float64(unclustered))
}

// ObserveTemplateAction records a template create/update; the "bump" label
// carries the engine action ("CREATE" or "UPDATE").
func (e *Exporter) ObserveTemplateAction(bump string, familyID string, major int) {
	e.templatesCreated.WithLabelValues(bump).Inc()
	e.templateVersion.WithLabelValues(familyID).Set(float64(major))
}
