package assigner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/cluster"
	"github.com/kestrel-labs/promptforge/pkg/models"
)

// FullClassify runs a full clustering pass unconditionally, bypassing
// Tick's bootstrap gate — backs the `full-classify` CLI command's "force
// a full clustering pass" semantics, used after an embedding-model
// change or to re-cluster on demand regardless of how many prompts are
// already assigned.
func (w *Worker) FullClassify(ctx context.Context) error {
	return w.fullClusterPass(ctx)
}

// fullClusterPass implements spec.md §4.D step 1's delegation to the full
// clusterer (§4.C): embed any still-unembedded prompts, run HDBSCAN-style
// clustering over every embedded prompt, and reconcile the resulting
// labels against the existing family partition (update families a
// cluster's majority previously belonged to, create one only for a
// cluster with no reusable family).
func (w *Worker) fullClusterPass(ctx context.Context) error {
	if err := w.embedPending(ctx); err != nil {
		return fmt.Errorf("embed pending prompts: %w", err)
	}

	prompts, err := w.store.AllPromptsWithEmbeddings()
	if err != nil {
		return fmt.Errorf("load embedded prompts: %w", err)
	}
	if len(prompts) == 0 {
		return nil
	}

	points := make([]cluster.Point, len(prompts))
	byID := make(map[string]models.Prompt, len(prompts))
	for i, p := range prompts {
		id := p.ID.String()
		points[i] = cluster.Point{ID: id, Embedding: []float32(p.Embedding)}
		byID[id] = p
	}

	result := cluster.Cluster(points, w.cfg.ClusterConfig)

	var creates []models.Family
	var updates []models.Family
	assignments := make(map[uuid.UUID]uuid.UUID, len(prompts))
	claimed := make(map[uuid.UUID]bool, len(result.Clusters))

	for label, memberIDs := range result.Clusters {
		samples := make([]string, 0, len(memberIDs))
		votes := make(map[uuid.UUID]int, len(memberIDs))
		for _, id := range memberIDs {
			p := byID[id]
			samples = append(samples, p.NormalizedText)
			if p.FamilyID != nil {
				votes[*p.FamilyID]++
			}
		}

		// Reuse the family that held a majority of this cluster's members
		// before the pass, per spec.md §4.C: "if a cluster maps to an
		// existing family, update it; else create a new one." A family
		// already claimed by another label in this same pass is not
		// reusable twice.
		var reused uuid.UUID
		best := 0
		for fid, count := range votes {
			if claimed[fid] || count <= best {
				continue
			}
			reused, best = fid, count
		}

		centroid := models.Vector(result.Centroids[label])
		var familyID uuid.UUID
		if reused != uuid.Nil {
			familyID = reused
			claimed[familyID] = true
			updates = append(updates, models.Family{ID: familyID, Centroid: centroid, MemberCount: len(memberIDs)})
		} else {
			familyID = uuid.New()
			name := cluster.Name(w.nameFn, label, samples)
			creates = append(creates, models.Family{
				ID:          familyID,
				Name:        name,
				MemberCount: len(memberIDs),
				Centroid:    centroid,
			})
		}

		for _, id := range memberIDs {
			promptID, parseErr := uuid.Parse(id)
			if parseErr != nil {
				continue
			}
			assignments[promptID] = familyID
		}
	}

	if err := w.store.ApplyClusterPartition(creates, updates, assignments); err != nil {
		return err
	}
	w.reportFamilyCounts()
	return nil
}

// embedPending computes embeddings for any prompt that lacks one, without
// touching family assignment (that happens in fullClusterPass/assignBatch).
func (w *Worker) embedPending(ctx context.Context) error {
	pending, err := w.store.PendingPrompts(0)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.IsEmbedded() {
			continue
		}
		vec, err := w.generator.Generate(ctx, p.NormalizedText)
		if err != nil {
			return fmt.Errorf("embed prompt %s: %w", p.ID, err)
		}
		if err := w.store.UpdatePromptEmbeddingAndFamily(p.ID, models.Vector(vec), p.FamilyID); err != nil {
			return fmt.Errorf("persist embedding for prompt %s: %w", p.ID, err)
		}
	}
	return nil
}
