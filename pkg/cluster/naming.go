package cluster

import "fmt"

// NameProvider names a new family from a handful of its member texts.
// Implementations may call out to an LLM (the heuristic/real split
// pkg/llm.Extractor follows); the clusterer itself only needs this shape,
// grounded on generate_family_name in
// original_source/packages/ml_core/full_classifier.py.
type NameProvider func(label int, samples []string) string

// FallbackName is the mandatory name used when no NameProvider is
// configured, or the provider itself fails/returns empty — spec.md §4.C's
// required fallback.
func FallbackName(label int) string {
	return fmt.Sprintf("Cluster-%d", label)
}

// Name resolves a family name for label using provider if given, applying
// FallbackName when provider is nil or returns an empty string.
func Name(provider NameProvider, label int, samples []string) string {
	if provider == nil {
		return FallbackName(label)
	}
	name := provider(label, samples)
	if name == "" {
		return FallbackName(label)
	}
	return name
}
