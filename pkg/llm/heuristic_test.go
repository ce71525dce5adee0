package llm

import (
	"context"
	"testing"
)

func TestHeuristicProvider_ExtractTemplate_EmptyInput(t *testing.T) {
	h := NewHeuristicProvider()
	ext, err := h.ExtractTemplate(context.Background(), nil)
	if err != nil {
		t.Fatalf("ExtractTemplate: %v", err)
	}
	if ext.Text != "" || len(ext.Variables) != 0 {
		t.Errorf("expected empty extraction, got %+v", ext)
	}
}

func TestHeuristicProvider_ExtractTemplate_DetectsVariables(t *testing.T) {
	h := NewHeuristicProvider()
	prompts := []string{
		"Write a {{language}} script to scrape {website}",
		"Write a {{language}} program to connect to $website",
	}
	ext, err := h.ExtractTemplate(context.Background(), prompts)
	if err != nil {
		t.Fatalf("ExtractTemplate: %v", err)
	}

	found := map[string]bool{}
	for _, v := range ext.Variables {
		found[v] = true
	}
	if !found["language"] || !found["website"] {
		t.Errorf("expected both variables detected, got %v", ext.Variables)
	}
	if ext.Text != "Write a {{language}} script to scrape {{website}}" {
		t.Errorf("unexpected template text: %q", ext.Text)
	}
}

func TestHeuristicProvider_GenerateExplanation_EmptyInput(t *testing.T) {
	h := NewHeuristicProvider()
	got, err := h.GenerateExplanation(context.Background(), nil)
	if err != nil {
		t.Fatalf("GenerateExplanation: %v", err)
	}
	if got != "No prompts provided" {
		t.Errorf("got %q", got)
	}
}

func TestHeuristicProvider_GenerateExplanation_CommonVariables(t *testing.T) {
	h := NewHeuristicProvider()
	prompts := []string{
		"Compare {{food_1}} and {{food_2}} nutritionally",
		"Is {{food_1}} better than {{food_2}} for protein?",
	}
	got, err := h.GenerateExplanation(context.Background(), prompts)
	if err != nil {
		t.Fatalf("GenerateExplanation: %v", err)
	}
	if got == "" {
		t.Error("expected non-empty explanation")
	}
}

func TestDetectVariables_AllBracketStyles(t *testing.T) {
	text := "{{a}} {b} $c [d]"
	vars := detectVariables(text)
	want := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	if len(vars) != 4 {
		t.Fatalf("expected 4 variables, got %v", vars)
	}
	for _, v := range vars {
		if !want[v] {
			t.Errorf("unexpected variable %q", v)
		}
	}
}
