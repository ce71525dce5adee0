package llm

import (
	"context"
	"testing"
)

type stubExtractor struct {
	extraction Extraction
	explain    string
	err        error
}

func (s *stubExtractor) ExtractTemplate(ctx context.Context, prompts []string) (Extraction, error) {
	if s.err != nil {
		return Extraction{}, s.err
	}
	return s.extraction, nil
}

func (s *stubExtractor) GenerateExplanation(ctx context.Context, prompts []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.explain, nil
}

func TestProcessor_NoRealProvider_UsesHeuristic(t *testing.T) {
	heuristic := &stubExtractor{extraction: Extraction{Text: "heuristic result"}}
	p := NewProcessor(nil, heuristic)

	ext, err := p.ExtractTemplate(context.Background(), []string{"a prompt"})
	if err != nil {
		t.Fatalf("ExtractTemplate: %v", err)
	}
	if ext.Text != "heuristic result" {
		t.Errorf("expected heuristic result, got %+v", ext)
	}
}

func TestProcessor_UnconfiguredRealProvider_FallsBack(t *testing.T) {
	real := NewRealProvider(RealConfig{}) // no API key -> unavailable
	heuristic := &stubExtractor{explain: "fallback explanation"}
	p := NewProcessor(real, heuristic)

	got, err := p.GenerateExplanation(context.Background(), []string{"a prompt"})
	if err != nil {
		t.Fatalf("GenerateExplanation: %v", err)
	}
	if got != "fallback explanation" {
		t.Errorf("expected fallback explanation, got %q", got)
	}
}

func TestProcessor_DefaultsToHeuristicWhenNil(t *testing.T) {
	p := NewProcessor(nil, nil)
	ext, err := p.ExtractTemplate(context.Background(), []string{"Write a {{x}} thing"})
	if err != nil {
		t.Fatalf("ExtractTemplate: %v", err)
	}
	if len(ext.Variables) != 1 || ext.Variables[0] != "x" {
		t.Errorf("expected default heuristic to detect variable x, got %+v", ext)
	}
}
