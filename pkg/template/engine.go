package template

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/promptforge/pkg/llm"
	"github.com/kestrel-labs/promptforge/pkg/models"
)

// DefaultCreateThreshold and DefaultUpdateDelta are spec.md §4.E's defaults
// for C_min and Delta.
const (
	DefaultCreateThreshold = 3
	DefaultUpdateDelta     = 5
	maxSampleMembers       = 20
)

// Store is the persistence surface the Engine needs from a family's
// member prompts and its template chain. *database.DB satisfies it.
type Store interface {
	FamilyMembers(familyID uuid.UUID, limit int) ([]models.Prompt, error)
	ActiveTemplate(familyID uuid.UUID) (*models.Template, error)
	CreateTemplate(tpl *models.Template) error
	DeactivateTemplate(id uuid.UUID) error
	UpdateFamilyTemplateCheckpoint(familyID uuid.UUID, memberCount int) error
}

// Engine decides, per family, whether a template create/update action is
// due (spec.md §4.E) and runs the extraction pipeline
// (Align -> Assemble -> diffVersion) to produce the next template row.
type Engine struct {
	store           Store
	extractor       llm.Extractor
	createThreshold int
	updateDelta     int
}

// NewEngine builds an Engine. createThreshold/updateDelta of 0 fall back to
// the spec defaults.
func NewEngine(store Store, extractor llm.Extractor, createThreshold, updateDelta int) *Engine {
	if createThreshold <= 0 {
		createThreshold = DefaultCreateThreshold
	}
	if updateDelta <= 0 {
		updateDelta = DefaultUpdateDelta
	}
	return &Engine{store: store, extractor: extractor, createThreshold: createThreshold, updateDelta: updateDelta}
}

// Action is what Decide determined is due for a family.
type Action string

const (
	ActionNone   Action = "NONE"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
)

// Decide implements spec.md §4.E's per-family trigger rule.
func (e *Engine) Decide(family *models.Family) Action {
	active, err := e.store.ActiveTemplate(family.ID)
	hasActive := err == nil && active != nil

	if !hasActive {
		if family.MemberCount >= e.createThreshold {
			return ActionCreate
		}
		return ActionNone
	}

	if family.NewMembersSinceTemplate() >= e.updateDelta {
		return ActionUpdate
	}
	return ActionNone
}

// Process runs the full extraction pipeline for a family whose Decide
// result is not ActionNone, and persists the resulting template version.
// It is idempotent to call on a family with ActionNone: it simply returns
// without doing anything.
func (e *Engine) Process(ctx context.Context, family *models.Family) (*models.Template, error) {
	action := e.Decide(family)
	if action == ActionNone {
		return nil, nil
	}

	members, err := e.store.FamilyMembers(family.ID, maxSampleMembers)
	if err != nil {
		return nil, fmt.Errorf("load family members: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("family %s has no members to extract from", family.ID)
	}

	samples := make([]string, len(members))
	for i, m := range members {
		samples[i] = m.NormalizedText
	}

	alignment := Align(samples)
	assembly := Assemble(alignment)

	var prev *models.Template
	if action == ActionUpdate {
		prev, err = e.store.ActiveTemplate(family.ID)
		if err != nil {
			return nil, fmt.Errorf("load active template: %w", err)
		}
	}

	tpl, err := e.buildTemplate(family, prev, assembly)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		// diffVersion decided NONE: the realignment reproduced the active
		// template verbatim, nothing to persist.
		return nil, nil
	}

	if prev != nil {
		if err := e.store.DeactivateTemplate(prev.ID); err != nil {
			return nil, fmt.Errorf("deactivate previous template: %w", err)
		}
	}
	if err := e.store.CreateTemplate(tpl); err != nil {
		return nil, fmt.Errorf("persist template: %w", err)
	}
	if err := e.store.UpdateFamilyTemplateCheckpoint(family.ID, family.MemberCount); err != nil {
		return nil, fmt.Errorf("checkpoint family %s: %w", family.ID, err)
	}
	return tpl, nil
}

// buildTemplate compares the new assembly against prev (nil for a fresh
// family) and constructs the next models.Template row, or nil if nothing
// changed (diffVersion == NONE on an update).
func (e *Engine) buildTemplate(family *models.Family, prev *models.Template, assembly Assembly) (*models.Template, error) {
	slotsJSON, err := models.EncodeSlots(assembly.Slots)
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}

	if prev == nil {
		return &models.Template{
			FamilyID:     family.ID,
			IsActive:     true,
			TemplateText: assembly.TemplateText,
			Slots:        slotsJSON,
			Major:        1,
			Minor:        0,
			Patch:        0,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
		}, nil
	}

	prevSlots, err := prev.DecodedSlots()
	if err != nil {
		return nil, fmt.Errorf("decode previous slots: %w", err)
	}
	bump := diffVersion(prevSlots, prev.TemplateText, assembly.Slots, assembly.TemplateText)
	if bump == models.BumpNone {
		return nil, nil
	}
	major, minor, patch := nextVersion(prev.Major, prev.Minor, prev.Patch, bump)

	parent := prev.ID
	return &models.Template{
		FamilyID:         family.ID,
		ParentTemplateID: &parent,
		IsActive:         true,
		TemplateText:     assembly.TemplateText,
		Slots:            slotsJSON,
		Major:            major,
		Minor:            minor,
		Patch:            patch,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}, nil
}
