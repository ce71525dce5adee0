package models

import (
	"time"

	"github.com/google/uuid"
)

// Family is a cluster of semantically similar prompts.
type Family struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"family_name" gorm:"column:family_name;not null"`
	Description string    `json:"description"`

	// Centroid is absent until clustering has run. It is the arithmetic
	// mean of member embeddings and is stored without re-normalization;
	// downstream similarity uses cosine, which normalizes internally
	// (spec Open Question 4 — do not re-normalize this column expecting
	// Euclidean comparisons).
	Centroid Vector `json:"centroid_vector,omitempty" gorm:"column:centroid_vector;type:jsonb"`

	MemberCount                int `json:"member_count" gorm:"default:0"`
	MemberCountAtLastTemplate  int `json:"member_count_at_last_template" gorm:"default:0"`
	Version                    int `json:"version" gorm:"default:0"`

	// NeedsTemplateUpdate is a cached hint recomputed by the template
	// engine sweep; TemplateUpdateThreshold is the per-family override of
	// the global update-delta knob (0 = use the global default).
	NeedsTemplateUpdate    bool `json:"needs_template_update" gorm:"default:false"`
	TemplateUpdateThreshold int  `json:"template_update_threshold" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when absent.
func (f *Family) BeforeCreate() error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// TableName pins the table name.
func (Family) TableName() string {
	return "families"
}

// HasCentroid reports whether a full pass has computed a centroid yet.
func (f *Family) HasCentroid() bool {
	return len(f.Centroid) > 0
}

// NewMembersSinceTemplate returns how many members have joined since the
// last template extraction. Never negative by invariant 5
// (member_count_at_last_template <= member_count).
func (f *Family) NewMembersSinceTemplate() int {
	delta := f.MemberCount - f.MemberCountAtLastTemplate
	if delta < 0 {
		return 0
	}
	return delta
}
