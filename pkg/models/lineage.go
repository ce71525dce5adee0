package models

import (
	"time"

	"github.com/google/uuid"
)

// MutationType tags the directed edge between two prompts in the lineage
// DAG.
type MutationType string

const (
	MutationMinorEdit     MutationType = "minor_edit"
	MutationVariableChange MutationType = "variable_change"
	MutationSystemChange  MutationType = "system_change"
	MutationModerateChange MutationType = "moderate_change"
	MutationMajorChange   MutationType = "major_change"
)

// LineageEdge is an optional directed parent->child link between two
// prompts, forming a DAG across the corpus. It is not produced by any
// component in this repository's pipeline (no derivation source is
// specified) but is modeled and persisted so adapters that do compute
// lineage (e.g. an ingestion-time diff against a recent prompt) have
// somewhere to write it.
type LineageEdge struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`

	ParentPromptID *uuid.UUID `json:"parent_prompt_id,omitempty" gorm:"type:uuid;index"`
	ChildPromptID  uuid.UUID  `json:"child_prompt_id" gorm:"type:uuid;not null;index"`

	MutationType MutationType `json:"mutation_type" gorm:"not null"`
	Confidence   float64      `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns an ID when absent.
func (l *LineageEdge) BeforeCreate() error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// TableName pins the table name.
func (LineageEdge) TableName() string {
	return "lineage"
}
