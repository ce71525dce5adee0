// Package ingest implements the shared add/ingest inner pipeline: dedup,
// persist, and (if the corpus is already bootstrapped) assign a single
// prompt. Both the one-shot "add"/"ingest" CLI paths and the
// ingestion worker's per-line loop (internal/ingestworker) call through
// this package so the two never drift, per spec.md §5's "ad-hoc
// invocations run the same inner pipeline but without a loop" note.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kestrel-labs/promptforge/pkg/dedup"
	"github.com/kestrel-labs/promptforge/pkg/embeddings"
	"github.com/kestrel-labs/promptforge/pkg/models"
	"github.com/kestrel-labs/promptforge/pkg/normalize"
)

// Store is the persistence surface Add needs.
type Store interface {
	CreatePrompt(p *models.Prompt) error
	AllCentroids() (map[uuid.UUID]models.Vector, error)
}

// Result reports the outcome of a single Add call.
type Result struct {
	Outcome  dedup.Outcome
	PromptID uuid.UUID
	MatchID  uuid.UUID
}

// Pipeline bundles the dedup index and (optional) embedding generator a
// single ingestion call needs.
type Pipeline struct {
	Store     Store
	Index     *dedup.Index
	Generator embeddings.EmbeddingGenerator // nil disables immediate assignment
	Threshold float64
}

// Add implements the dedup -> persist -> (optional) assign steps for one
// raw prompt text, spec.md §4.A/§4.B and the "add" command's effect.
func (p *Pipeline) Add(ctx context.Context, text string, metadata datatypes.JSON) (Result, error) {
	normalized := normalize.Text(text)
	id := uuid.New()

	candidate := p.Index.Evaluate(id, normalized)
	if candidate.Outcome != dedup.Kept {
		return Result{Outcome: candidate.Outcome, MatchID: candidate.MatchID}, nil
	}

	prompt := &models.Prompt{
		ID:             id,
		OriginalText:   text,
		NormalizedText: normalized,
		DedupHash:      normalize.ExactFingerprint(normalized),
		SimHash:        normalize.SimHashHex(normalize.SimHash(normalized)),
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	if p.Generator != nil {
		if err := p.assignIfBootstrapped(ctx, prompt); err != nil {
			return Result{}, fmt.Errorf("assign prompt: %w", err)
		}
	}

	if err := p.Store.CreatePrompt(prompt); err != nil {
		return Result{}, fmt.Errorf("persist prompt: %w", err)
	}

	return Result{Outcome: dedup.Kept, PromptID: prompt.ID}, nil
}

// assignIfBootstrapped embeds and, if a centroid clears the assignment
// threshold, assigns prompt to the nearest family — used only when the
// caller opts into immediate (rather than deferred to the assigner tick)
// embedding, e.g. the "add" command's "(if bootstrapped) assign to
// nearest family" effect.
func (p *Pipeline) assignIfBootstrapped(ctx context.Context, prompt *models.Prompt) error {
	centroids, err := p.Store.AllCentroids()
	if err != nil {
		return err
	}
	if len(centroids) == 0 {
		return nil
	}

	embedding, err := p.Generator.Generate(ctx, prompt.NormalizedText)
	if err != nil {
		return err
	}
	prompt.Embedding = models.Vector(embedding)

	familyIDs := make([]uuid.UUID, 0, len(centroids))
	vectors := make([][]float32, 0, len(centroids))
	for id, c := range centroids {
		familyIDs = append(familyIDs, id)
		vectors = append(vectors, []float32(c))
	}

	sims := embeddings.BatchCosineSimilarity(embedding, vectors)
	bestIdx, best := -1, -1.0
	for i, s := range sims {
		if s > best {
			best, bestIdx = s, i
		}
	}
	if bestIdx >= 0 && best >= p.Threshold {
		familyID := familyIDs[bestIdx]
		prompt.FamilyID = &familyID
	}
	return nil
}
