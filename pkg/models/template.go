package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SlotType categorizes a template's variable hole.
type SlotType string

const (
	SlotNumeric SlotType = "NUMERIC"
	SlotEnum    SlotType = "ENUM"
	SlotText    SlotType = "TEXT"
	SlotDate    SlotType = "DATE"
	SlotEmail   SlotType = "EMAIL"
	SlotURL     SlotType = "URL"
)

// Slot is a typed hole in a template. Templates persist an ordered slice of
// these as JSON in the templates.slots column.
type Slot struct {
	Name        string   `json:"name"`
	Type        SlotType `json:"type"`
	Position    int      `json:"position"`
	Examples    []string `json:"examples,omitempty"`
	EnumValues  []string `json:"enum_values,omitempty"`
	Validation  string   `json:"validation_pattern,omitempty"`
	Description string   `json:"description,omitempty"`
	Default     string   `json:"default_value,omitempty"`
	Required    bool     `json:"required"`
}

// VersionBump describes a semantic version transition.
type VersionBump string

const (
	BumpNone  VersionBump = "NONE"
	BumpPatch VersionBump = "PATCH"
	BumpMinor VersionBump = "MINOR"
	BumpMajor VersionBump = "MAJOR"
)

// Template is a canonical parametric form derived from a family. Templates
// are never updated in place: each re-extraction inserts a new row and
// flips the previous one's IsActive off (see pkg/template.Engine).
type Template struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	FamilyID uuid.UUID `json:"family_id" gorm:"type:uuid;not null;index"`

	ParentTemplateID *uuid.UUID `json:"parent_template_id,omitempty" gorm:"type:uuid;index"`

	IsActive bool `json:"is_active" gorm:"index;default:true"`

	TemplateText string         `json:"template_text" gorm:"not null"`
	Slots        datatypes.JSON `json:"slots" gorm:"type:jsonb"`

	Major int `json:"major" gorm:"default:1"`
	Minor int `json:"minor" gorm:"default:0"`
	Patch int `json:"patch" gorm:"default:0"`

	QualityScore *float64 `json:"quality_score,omitempty"`
	IsRefined    bool     `json:"is_refined" gorm:"default:false"`

	IntentEmbedding Vector `json:"intent_embedding,omitempty" gorm:"column:intent_embedding;type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when absent.
func (t *Template) BeforeCreate() error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName pins the table name.
func (Template) TableName() string {
	return "templates"
}

// Version returns the semantic version triple as a string, e.g. "1.2.0".
func (t *Template) Version() string {
	return versionString(t.Major, t.Minor, t.Patch)
}

func versionString(major, minor, patch int) string {
	return fmtVersion(major, minor, patch)
}

// Less reports whether t sorts strictly before o on (major, minor, patch),
// used to assert version monotonicity within a family's template chain.
func (t *Template) Less(o *Template) bool {
	if t.Major != o.Major {
		return t.Major < o.Major
	}
	if t.Minor != o.Minor {
		return t.Minor < o.Minor
	}
	return t.Patch < o.Patch
}

// DecodedSlots unmarshals the Slots JSON column into a []Slot slice.
func (t *Template) DecodedSlots() ([]Slot, error) {
	return decodeSlots(t.Slots)
}
