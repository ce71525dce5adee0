package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestPrompt_BeforeCreate(t *testing.T) {
	tests := []struct {
		name   string
		prompt *Prompt
	}{
		{
			name:   "generates UUID if nil",
			prompt: &Prompt{OriginalText: "write a python script"},
		},
		{
			name:   "keeps existing UUID",
			prompt: &Prompt{ID: uuid.New(), OriginalText: "write a python script"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalID := tt.prompt.ID
			if err := tt.prompt.BeforeCreate(); err != nil {
				t.Fatalf("BeforeCreate() error = %v", err)
			}
			if tt.prompt.ID == uuid.Nil {
				t.Error("ID should not be nil after BeforeCreate()")
			}
			if originalID != uuid.Nil && tt.prompt.ID != originalID {
				t.Error("existing ID should not be changed")
			}
		})
	}
}

func TestPrompt_IsEmbeddedAndAssigned(t *testing.T) {
	p := &Prompt{}
	if p.IsEmbedded() {
		t.Error("fresh prompt should not be embedded")
	}
	if p.IsAssigned() {
		t.Error("fresh prompt should not be assigned")
	}

	p.Embedding = Vector{0.1, 0.2, 0.3}
	if !p.IsEmbedded() {
		t.Error("prompt with embedding should report embedded")
	}

	fam := uuid.New()
	p.FamilyID = &fam
	if !p.IsAssigned() {
		t.Error("prompt with family id should report assigned")
	}
}
