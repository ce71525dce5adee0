package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prompt is a single ingested prompt. It is immutable once written except
// for Embedding, FamilyID and IsTemplateSeed, which are filled in by later
// pipeline stages.
type Prompt struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`

	OriginalText   string `json:"original_text" gorm:"not null"`
	NormalizedText string `json:"normalized_text" gorm:"not null"`

	// DedupHash is the hex-encoded SHA-256 of NormalizedText, unique across
	// kept prompts.
	DedupHash string `json:"dedup_hash" gorm:"uniqueIndex;not null;size:64"`

	// SimHash is the hex-encoded 64-bit near-duplicate fingerprint.
	SimHash string `json:"simhash" gorm:"index;not null;size:16"`

	// Embedding is absent (nil) until the assigner or a full pass embeds it.
	Embedding Vector `json:"embedding_vector,omitempty" gorm:"column:embedding_vector;type:jsonb"`

	FamilyID *uuid.UUID `json:"family_id,omitempty" gorm:"type:uuid;index"`
	Family   *Family    `json:"family,omitempty" gorm:"foreignKey:FamilyID"`

	// Metadata is an opaque bag (source, timestamps, model name, cost,
	// best-effort structure hints) the core never interprets.
	Metadata datatypes.JSON `json:"metadata" gorm:"type:jsonb"`

	IsTemplateSeed bool `json:"is_template_seed" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when absent, matching the teacher's
// uuid-on-create hooks across pkg/models.
func (p *Prompt) BeforeCreate() error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName pins the table name the way every teacher model does.
func (Prompt) TableName() string {
	return "prompts"
}

// IsEmbedded reports whether this prompt has a stored embedding.
func (p *Prompt) IsEmbedded() bool {
	return len(p.Embedding) > 0
}

// IsAssigned reports whether this prompt is attached to a family.
func (p *Prompt) IsAssigned() bool {
	return p.FamilyID != nil
}
