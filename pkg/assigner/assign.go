package assigner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/embeddings"
	"github.com/kestrel-labs/promptforge/pkg/models"
)

// assignBatch implements spec.md §4.D step 3: embed (if needed) and assign
// up to batch_size pending prompts to the nearest family centroid, in
// creation order, one commit per prompt.
func (w *Worker) assignBatch(ctx context.Context) error {
	centroids, err := w.store.AllCentroids()
	if err != nil {
		return fmt.Errorf("load centroids: %w", err)
	}

	familyIDs := make([]uuid.UUID, 0, len(centroids))
	vectors := make([][]float32, 0, len(centroids))
	for id, c := range centroids {
		familyIDs = append(familyIDs, id)
		vectors = append(vectors, []float32(c))
	}

	pending, err := w.store.PendingPrompts(w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("load pending prompts: %w", err)
	}

	for _, p := range pending {
		embedding := []float32(p.Embedding)
		if len(embedding) == 0 {
			embedding, err = w.generator.Generate(ctx, p.NormalizedText)
			if err != nil {
				return fmt.Errorf("embed prompt %s: %w", p.ID, err)
			}
		}

		familyID := nearestFamily(embedding, familyIDs, vectors, w.cfg.AssignmentThreshold)

		if err := w.store.UpdatePromptEmbeddingAndFamily(p.ID, models.Vector(embedding), familyID); err != nil {
			return fmt.Errorf("persist assignment for prompt %s: %w", p.ID, err)
		}
	}
	return nil
}

// nearestFamily finds the centroid with the highest cosine similarity to
// embedding and returns its family ID if that similarity meets threshold,
// or nil ("unclustered") otherwise.
func nearestFamily(embedding []float32, familyIDs []uuid.UUID, vectors [][]float32, threshold float64) *uuid.UUID {
	if len(vectors) == 0 {
		return nil
	}
	sims := embeddings.BatchCosineSimilarity(embedding, vectors)

	bestIdx := -1
	best := -1.0
	for i, s := range sims {
		if s > best {
			best = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || best < threshold {
		return nil
	}
	id := familyIDs[bestIdx]
	return &id
}

// SweepTemplates runs step 5 (the template-engine sweep) directly,
// without touching assignment — backs the `update-templates` CLI
// command, which must force only the template create/update decision,
// not re-run nearest-centroid assignment.
func (w *Worker) SweepTemplates(ctx context.Context) error {
	return w.runTemplateHook(ctx)
}

// runTemplateHook implements spec.md §4.D step 5: sweep every family
// through the template engine.
func (w *Worker) runTemplateHook(ctx context.Context) error {
	families, err := w.store.AllFamilies()
	if err != nil {
		return fmt.Errorf("load families: %w", err)
	}
	for i := range families {
		action := w.engine.Decide(&families[i])
		tpl, err := w.engine.Process(ctx, &families[i])
		if err != nil {
			return fmt.Errorf("template engine for family %s: %w", families[i].ID, err)
		}
		if tpl != nil && w.metrics != nil {
			w.metrics.ObserveTemplateAction(string(action), families[i].ID.String(), tpl.Major)
		}
	}
	return nil
}
