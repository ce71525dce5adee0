package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kestrel-labs/promptforge/pkg/dedup"
	"github.com/kestrel-labs/promptforge/pkg/models"
)

type stubStore struct {
	created   []*models.Prompt
	centroids map[uuid.UUID]models.Vector
}

func (s *stubStore) CreatePrompt(p *models.Prompt) error {
	s.created = append(s.created, p)
	return nil
}

func (s *stubStore) AllCentroids() (map[uuid.UUID]models.Vector, error) {
	return s.centroids, nil
}

func TestPipeline_Add_FirstPromptIsKept(t *testing.T) {
	store := &stubStore{}
	p := &Pipeline{Store: store, Index: dedup.New(3)}

	result, err := p.Add(context.Background(), "Write a poem about the sea", datatypes.JSON(nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if result.Outcome != dedup.Kept {
		t.Errorf("Outcome = %v, want Kept", result.Outcome)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 prompt persisted, got %d", len(store.created))
	}
}

func TestPipeline_Add_ExactDuplicateIsNotPersisted(t *testing.T) {
	store := &stubStore{}
	p := &Pipeline{Store: store, Index: dedup.New(3)}

	if _, err := p.Add(context.Background(), "Write a poem about the sea", nil); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	result, err := p.Add(context.Background(), "Write a poem about the sea", nil)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if result.Outcome != dedup.ExactDuplicate {
		t.Errorf("Outcome = %v, want ExactDuplicate", result.Outcome)
	}
	if len(store.created) != 1 {
		t.Errorf("expected duplicate to skip persistence, got %d created", len(store.created))
	}
}

func TestPipeline_Add_NoGeneratorSkipsAssignment(t *testing.T) {
	store := &stubStore{centroids: map[uuid.UUID]models.Vector{uuid.New(): {1, 0}}}
	p := &Pipeline{Store: store, Index: dedup.New(3)}

	if _, err := p.Add(context.Background(), "Tell me a joke", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if store.created[0].FamilyID != nil {
		t.Error("expected no family assignment without a generator")
	}
}
