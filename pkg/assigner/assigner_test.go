package assigner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

type stubStore struct {
	assignedCount int64
	pendingCount  int64
	pending       []models.Prompt
	centroids     map[uuid.UUID]models.Vector
	families      []models.Family

	updated        map[uuid.UUID]*uuid.UUID
	recounted      bool
	createdFamilies []models.Family
	updatedFamilies []models.Family
	partitionAssigns map[uuid.UUID]uuid.UUID

	fullPassCalled bool
}

func newStubStore() *stubStore {
	return &stubStore{
		centroids: make(map[uuid.UUID]models.Vector),
		updated:   make(map[uuid.UUID]*uuid.UUID),
	}
}

func (s *stubStore) CountAssigned() (int64, error) { return s.assignedCount, nil }
func (s *stubStore) CountPending() (int64, error)  { return s.pendingCount, nil }
func (s *stubStore) PendingPrompts(limit int) ([]models.Prompt, error) {
	if limit > 0 && len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}
func (s *stubStore) AllCentroids() (map[uuid.UUID]models.Vector, error) { return s.centroids, nil }
func (s *stubStore) UpdatePromptEmbeddingAndFamily(id uuid.UUID, embedding models.Vector, familyID *uuid.UUID) error {
	s.updated[id] = familyID
	return nil
}
func (s *stubStore) RecountFamilyMembers() error { s.recounted = true; return nil }
func (s *stubStore) AllFamilies() ([]models.Family, error) { return s.families, nil }
func (s *stubStore) AllPromptsWithEmbeddings() ([]models.Prompt, error) { return nil, nil }
func (s *stubStore) ApplyClusterPartition(creates []models.Family, updates []models.Family, assignments map[uuid.UUID]uuid.UUID) error {
	s.fullPassCalled = true
	s.createdFamilies = creates
	s.updatedFamilies = updates
	s.partitionAssigns = assignments
	return nil
}
func (s *stubStore) FamilyMembers(familyID uuid.UUID, limit int) ([]models.Prompt, error) {
	return nil, nil
}
func (s *stubStore) ActiveTemplate(familyID uuid.UUID) (*models.Template, error) {
	return nil, errors.New("not found")
}
func (s *stubStore) CreateTemplate(tpl *models.Template) error { return nil }
func (s *stubStore) DeactivateTemplate(id uuid.UUID) error     { return nil }
func (s *stubStore) UpdateFamilyTemplateCheckpoint(familyID uuid.UUID, memberCount int) error {
	return nil
}

type stubGenerator struct{ dims int }

func (g *stubGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, g.dims)
	for i := range vec {
		vec[i] = 1.0
	}
	return vec, nil
}
func (g *stubGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := g.Generate(ctx, t)
		out[i] = v
	}
	return out, nil
}
func (g *stubGenerator) ModelName() string { return "stub" }
func (g *stubGenerator) Dimensions() int    { return g.dims }

func TestTick_BootstrapGateTriggersFullPass(t *testing.T) {
	store := newStubStore()
	store.assignedCount = 1

	cfg := DefaultConfig()
	cfg.BootstrapThreshold = 50
	w := New(store, &stubGenerator{dims: 4}, nil, nil, cfg)

	outcome, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if outcome != OutcomeFullClusterPass {
		t.Errorf("outcome = %v, want OutcomeFullClusterPass", outcome)
	}
}

func TestTick_BatchGateSkipsWhenTooFewPending(t *testing.T) {
	store := newStubStore()
	store.assignedCount = 1000
	store.pendingCount = 1

	cfg := DefaultConfig()
	cfg.BootstrapThreshold = 50
	cfg.BatchSize = 500
	w := New(store, &stubGenerator{dims: 4}, nil, nil, cfg)

	outcome, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if outcome != OutcomeSkippedBatch {
		t.Errorf("outcome = %v, want OutcomeSkippedBatch", outcome)
	}
}

func TestTick_AssignsAboveBothGates(t *testing.T) {
	store := newStubStore()
	store.assignedCount = 1000
	store.pendingCount = 1000
	familyID := uuid.New()
	store.centroids[familyID] = models.Vector{1, 0, 0, 0}
	promptID := uuid.New()
	store.pending = []models.Prompt{{ID: promptID, NormalizedText: "hello"}}

	cfg := DefaultConfig()
	cfg.BootstrapThreshold = 50
	cfg.BatchSize = 500
	cfg.AssignmentThreshold = 0.5
	w := New(store, &stubGenerator{dims: 4}, nil, nil, cfg)

	outcome, err := w.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if outcome != OutcomeAssigned {
		t.Errorf("outcome = %v, want OutcomeAssigned", outcome)
	}
	if !store.recounted {
		t.Error("expected RecountFamilyMembers to be called")
	}
	assignedFamily, ok := store.updated[promptID]
	if !ok || assignedFamily == nil {
		t.Fatalf("expected prompt to be assigned a family, got %v", store.updated)
	}
	if *assignedFamily != familyID {
		t.Errorf("assigned to %v, want %v", *assignedFamily, familyID)
	}
}

func TestNearestFamily_BelowThresholdReturnsNil(t *testing.T) {
	familyID := uuid.New()
	vectors := [][]float32{{0, 1, 0, 0}}
	got := nearestFamily([]float32{1, 0, 0, 0}, []uuid.UUID{familyID}, vectors, 0.5)
	if got != nil {
		t.Errorf("expected nil (unclustered), got %v", got)
	}
}

func TestNearestFamily_NoCentroidsReturnsNil(t *testing.T) {
	got := nearestFamily([]float32{1, 0}, nil, nil, 0.5)
	if got != nil {
		t.Errorf("expected nil with no centroids, got %v", got)
	}
}
