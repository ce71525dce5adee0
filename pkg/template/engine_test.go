package template

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

type fakeStore struct {
	members     map[uuid.UUID][]models.Prompt
	active      map[uuid.UUID]*models.Template
	created     []*models.Template
	deactives   []uuid.UUID
	checkpoints map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:     make(map[uuid.UUID][]models.Prompt),
		active:      make(map[uuid.UUID]*models.Template),
		checkpoints: make(map[uuid.UUID]int),
	}
}

func (s *fakeStore) FamilyMembers(familyID uuid.UUID, limit int) ([]models.Prompt, error) {
	m := s.members[familyID]
	if limit > 0 && len(m) > limit {
		m = m[:limit]
	}
	return m, nil
}

func (s *fakeStore) ActiveTemplate(familyID uuid.UUID) (*models.Template, error) {
	tpl, ok := s.active[familyID]
	if !ok {
		return nil, errNotFound
	}
	return tpl, nil
}

func (s *fakeStore) CreateTemplate(tpl *models.Template) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	s.created = append(s.created, tpl)
	s.active[tpl.FamilyID] = tpl
	return nil
}

func (s *fakeStore) DeactivateTemplate(id uuid.UUID) error {
	s.deactives = append(s.deactives, id)
	return nil
}

func (s *fakeStore) UpdateFamilyTemplateCheckpoint(familyID uuid.UUID, memberCount int) error {
	s.checkpoints[familyID] = memberCount
	return nil
}

type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var errNotFound = notFoundError{}

func promptsFrom(texts []string) []models.Prompt {
	out := make([]models.Prompt, len(texts))
	for i, t := range texts {
		out[i] = models.Prompt{ID: uuid.New(), NormalizedText: t, CreatedAt: time.Now().UTC()}
	}
	return out
}

func TestEngine_Decide_CreateWhenThresholdMet(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: uuid.New(), MemberCount: 3}
	if got := e.Decide(family); got != ActionCreate {
		t.Errorf("Decide() = %v, want ActionCreate", got)
	}
}

func TestEngine_Decide_NoneWhenBelowThreshold(t *testing.T) {
	store := newFakeStore()
	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: uuid.New(), MemberCount: 2}
	if got := e.Decide(family); got != ActionNone {
		t.Errorf("Decide() = %v, want ActionNone", got)
	}
}

func TestEngine_Decide_UpdateWhenDeltaMet(t *testing.T) {
	store := newFakeStore()
	familyID := uuid.New()
	store.active[familyID] = &models.Template{ID: uuid.New(), FamilyID: familyID}
	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: familyID, MemberCount: 10, MemberCountAtLastTemplate: 3}
	if got := e.Decide(family); got != ActionUpdate {
		t.Errorf("Decide() = %v, want ActionUpdate", got)
	}
}

func TestEngine_Process_CreatesFirstTemplate(t *testing.T) {
	store := newFakeStore()
	familyID := uuid.New()
	store.members[familyID] = promptsFrom([]string{
		"Write a story about a dragon",
		"Write a story about a wizard",
		"Write a story about a knight",
	})
	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: familyID, MemberCount: 3}

	tpl, err := e.Process(context.Background(), family)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if tpl == nil {
		t.Fatal("expected a template to be created")
	}
	if tpl.Major != 1 || tpl.Minor != 0 || tpl.Patch != 0 {
		t.Errorf("expected version 1.0.0, got %d.%d.%d", tpl.Major, tpl.Minor, tpl.Patch)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 created template, got %d", len(store.created))
	}
	if got := store.checkpoints[familyID]; got != family.MemberCount {
		t.Errorf("expected checkpoint %d, got %d", family.MemberCount, got)
	}
}

func TestEngine_Process_NoneIsNoop(t *testing.T) {
	store := newFakeStore()
	familyID := uuid.New()
	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: familyID, MemberCount: 1}

	tpl, err := e.Process(context.Background(), family)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if tpl != nil {
		t.Errorf("expected nil template for a no-op family, got %+v", tpl)
	}
	if len(store.created) != 0 {
		t.Errorf("expected no template created")
	}
}

func TestEngine_Process_UpdateDeactivatesPreviousTemplate(t *testing.T) {
	store := newFakeStore()
	familyID := uuid.New()

	prevSlots, _ := models.EncodeSlots([]models.Slot{{Name: "topic", Type: models.SlotText, Position: 0}})
	store.active[familyID] = &models.Template{
		ID: uuid.New(), FamilyID: familyID, IsActive: true,
		TemplateText: "Write a story about a {{topic}}",
		Slots:        prevSlots, Major: 1, Minor: 0, Patch: 0,
	}
	store.members[familyID] = promptsFrom([]string{
		"Write a story about a dragon in 2024-01-01",
		"Write a story about a wizard in 2024-02-02",
		"Write a story about a knight in 2024-03-03",
	})

	e := NewEngine(store, nil, 0, 0)
	family := &models.Family{ID: familyID, MemberCount: 10, MemberCountAtLastTemplate: 3}

	tpl, err := e.Process(context.Background(), family)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if tpl == nil {
		t.Fatal("expected an updated template")
	}
	if len(store.deactives) != 1 {
		t.Errorf("expected previous template to be deactivated")
	}
	if got := store.checkpoints[familyID]; got != family.MemberCount {
		t.Errorf("expected checkpoint reset to %d, got %d", family.MemberCount, got)
	}
}
