package llm

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Processor holds both a real and a heuristic Extractor and falls back to
// the heuristic at the call boundary whenever the real one is unavailable
// or fails — DESIGN NOTES §9's prescribed behavior for the collapsed
// real/mock client, not a workaround for it.
type Processor struct {
	real      *RealProvider
	heuristic Extractor
}

// NewProcessor builds a Processor. real may be nil (or unconfigured via
// RealProvider.IsAvailable) to always use the heuristic.
func NewProcessor(real *RealProvider, heuristic Extractor) *Processor {
	if heuristic == nil {
		heuristic = NewHeuristicProvider()
	}
	return &Processor{real: real, heuristic: heuristic}
}

func (p *Processor) realAvailable() bool {
	return p.real != nil && p.real.IsAvailable()
}

// ExtractTemplate implements Extractor.
func (p *Processor) ExtractTemplate(ctx context.Context, prompts []string) (Extraction, error) {
	if p.realAvailable() {
		extraction, err := p.real.ExtractTemplate(ctx, prompts)
		if err == nil {
			return extraction, nil
		}
		log.Warn().Err(err).Msg("falling back to heuristic template extraction")
	}
	return p.heuristic.ExtractTemplate(ctx, prompts)
}

// GenerateExplanation implements Extractor.
func (p *Processor) GenerateExplanation(ctx context.Context, prompts []string) (string, error) {
	if p.realAvailable() {
		explanation, err := p.real.GenerateExplanation(ctx, prompts)
		if err == nil {
			return explanation, nil
		}
		log.Warn().Err(err).Msg("falling back to heuristic explanation")
	}
	return p.heuristic.GenerateExplanation(ctx, prompts)
}
