package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

func fmtVersion(major, minor, patch int) string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}

func decodeSlots(raw datatypes.JSON) ([]Slot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var slots []Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	return slots, nil
}

// EncodeSlots marshals a slot slice into the JSON representation stored in
// templates.slots.
func EncodeSlots(slots []Slot) (datatypes.JSON, error) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode slots: %w", err)
	}
	return datatypes.JSON(raw), nil
}
