package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector is a float32 embedding or centroid persisted as a JSON array
// column. GORM round-trips it through database/sql's Valuer/Scanner pair the
// same way datatypes.JSON round-trips the Capabilities/Tags columns on the
// teacher's Model type, except the payload here is a flat float slice rather
// than an arbitrary object.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}

	var raw []byte
	switch t := src.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return fmt.Errorf("models.Vector: unsupported scan type %T", src)
	}

	if len(raw) == 0 {
		*v = nil
		return nil
	}

	return json.Unmarshal(raw, v)
}

// Dim returns the vector's dimension, 0 if absent.
func (v Vector) Dim() int {
	return len(v)
}
