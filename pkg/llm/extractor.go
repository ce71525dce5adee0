// Package llm provides the template-extraction capability the Template
// Engine (pkg/template) calls into: given a family's member prompts,
// produce a canonical template with {{variable}} placeholders, or a
// one-sentence explanation of why the prompts belong together.
//
// Grounded on original_source/packages/llm/client.py (real, Portkey-backed
// client) and mock_client.py (heuristic fallback), collapsed per the
// "dual real/mock LLM client" redesign note into a single Extractor
// interface with two implementations plus a Processor that calls the real
// one and falls back to the heuristic at the call boundary on failure.
package llm

import "context"

// Extraction is the result of generalizing a set of prompts into a
// template, mirroring original_source's CanonicalTemplate.
type Extraction struct {
	Text          string
	Variables     []string
	ExampleValues map[string][]string
}

// Extractor is the capability pkg/template depends on.
type Extractor interface {
	// ExtractTemplate generalizes prompts into a single canonical template.
	ExtractTemplate(ctx context.Context, prompts []string) (Extraction, error)
	// GenerateExplanation summarizes in 2-3 sentences why prompts form a
	// family, surfaced by the `evolve <id>` CLI report.
	GenerateExplanation(ctx context.Context, prompts []string) (string, error)
}
