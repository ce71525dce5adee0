package template

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

// Refine implements spec.md §4.E.6: ask the LLM extractor to reword an
// active template's text, reject the result if it does not preserve the
// exact set, order, and count of slot names, and otherwise insert it as a
// new is_refined PATCH-level version.
//
// Refinement reuses the Extractor capability rather than adding a third
// method to the interface: the reword request is phrased as a
// single-sample ExtractTemplate call seeded with the current template
// text, mirroring how template_generator.py's LLM path produces prose
// from a prompt set.
func (e *Engine) Refine(ctx context.Context, tpl *models.Template) (*models.Template, error) {
	if e.extractor == nil {
		return nil, fmt.Errorf("no LLM extractor configured")
	}
	slots, err := tpl.DecodedSlots()
	if err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}

	extraction, err := e.extractor.ExtractTemplate(ctx, []string{tpl.TemplateText})
	if err != nil {
		return nil, fmt.Errorf("llm reword: %w", err)
	}
	if err := validateRefinement(slots, extraction.Text); err != nil {
		return nil, fmt.Errorf("refinement rejected: %w", err)
	}

	major, minor, patch := nextVersion(tpl.Major, tpl.Minor, tpl.Patch, models.BumpPatch)
	slotsJSON, err := models.EncodeSlots(slots)
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	parent := tpl.ID
	refined := &models.Template{
		FamilyID:         tpl.FamilyID,
		ParentTemplateID: &parent,
		IsActive:         true,
		TemplateText:     extraction.Text,
		Slots:            slotsJSON,
		Major:            major,
		Minor:            minor,
		Patch:            patch,
		IsRefined:        true,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if err := e.store.DeactivateTemplate(tpl.ID); err != nil {
		return nil, fmt.Errorf("deactivate previous template: %w", err)
	}
	if err := e.store.CreateTemplate(refined); err != nil {
		return nil, fmt.Errorf("persist refined template: %w", err)
	}
	return refined, nil
}

// Explain returns a human-readable description of a family's common slots
// by delegating to the LLM extractor's explanation capability over a
// sample of member prompts. Used by the "evolve"/"family" read-only
// reports, not by the automatic template-hook sweep.
func (e *Engine) Explain(ctx context.Context, samples []string) (string, error) {
	if e.extractor == nil {
		return "", fmt.Errorf("no LLM extractor configured")
	}
	return e.extractor.GenerateExplanation(ctx, samples)
}

// validateRefinement enforces spec.md §4.E.6's invariant: the reworded
// text must reference exactly the same slot names, in the same relative
// order, the same number of times each slot anchor appears is not
// required — only that the set, order of first occurrence, and count of
// distinct slot names are preserved.
func validateRefinement(slots []models.Slot, text string) error {
	var found []string
	seen := make(map[string]bool, len(slots))
	for i := 0; i < len(text); i++ {
		for _, s := range slots {
			placeholder := "{{" + s.Name + "}}"
			if i+len(placeholder) <= len(text) && text[i:i+len(placeholder)] == placeholder {
				if !seen[s.Name] {
					seen[s.Name] = true
					found = append(found, s.Name)
				}
			}
		}
	}

	if len(found) != len(slots) {
		return fmt.Errorf("expected %d slots, found %d", len(slots), len(found))
	}
	for i, s := range slots {
		if found[i] != s.Name {
			return fmt.Errorf("slot order changed: expected %q at position %d, got %q", s.Name, i, found[i])
		}
	}
	return nil
}
