package models

import "testing"

func TestTemplate_Version(t *testing.T) {
	tpl := &Template{Major: 1, Minor: 2, Patch: 3}
	if got := tpl.Version(); got != "1.2.3" {
		t.Errorf("Version() = %q, want %q", got, "1.2.3")
	}
}

func TestTemplate_Less(t *testing.T) {
	tests := []struct {
		name string
		a, b *Template
		less bool
	}{
		{"major differs", &Template{Major: 1}, &Template{Major: 2}, true},
		{"minor differs", &Template{Major: 1, Minor: 1}, &Template{Major: 1, Minor: 2}, true},
		{"patch differs", &Template{Major: 1, Minor: 1, Patch: 0}, &Template{Major: 1, Minor: 1, Patch: 1}, true},
		{"equal", &Template{Major: 1, Minor: 1, Patch: 1}, &Template{Major: 1, Minor: 1, Patch: 1}, false},
		{"reverse not less", &Template{Major: 2}, &Template{Major: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Less(tt.b); got != tt.less {
				t.Errorf("Less() = %v, want %v", got, tt.less)
			}
		})
	}
}

func TestEncodeDecodeSlots(t *testing.T) {
	slots := []Slot{
		{Name: "task", Type: SlotText, Position: 2},
		{Name: "count", Type: SlotNumeric, Position: 5, Examples: []string{"3", "4"}},
	}

	raw, err := EncodeSlots(slots)
	if err != nil {
		t.Fatalf("EncodeSlots() error = %v", err)
	}

	tpl := &Template{Slots: raw}
	decoded, err := tpl.DecodedSlots()
	if err != nil {
		t.Fatalf("DecodedSlots() error = %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("DecodedSlots() len = %d, want 2", len(decoded))
	}
	if decoded[0].Name != "task" || decoded[1].Type != SlotNumeric {
		t.Errorf("unexpected decoded slots: %+v", decoded)
	}
}
