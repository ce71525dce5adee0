package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

// ValidationError describes one rendering input that failed a slot's rule.
type ValidationError struct {
	Slot    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Slot, e.Message)
}

// Warning describes a non-fatal rendering input issue, such as an unknown
// parameter name, per spec.md §4.E.5.
type Warning struct {
	Message string
}

// RenderResult is the outcome of rendering a template against parameters.
type RenderResult struct {
	Text     string
	Errors   []ValidationError
	Warnings []Warning
}

// Validate checks params against slots per spec.md §4.E.5, without
// rendering. It is used standalone and as Render's first pass.
func Validate(slots []models.Slot, params map[string]string) ([]ValidationError, []Warning) {
	var errs []ValidationError
	var warns []Warning

	known := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		known[slot.Name] = struct{}{}
		value, provided := params[slot.Name]
		if !provided || value == "" {
			if slot.Default != "" {
				continue
			}
			if slot.Required {
				errs = append(errs, ValidationError{Slot: slot.Name, Message: "required slot missing a value"})
			}
			continue
		}
		if err := validateValue(slot, value); err != nil {
			errs = append(errs, ValidationError{Slot: slot.Name, Message: err.Error()})
		}
	}

	for name := range params {
		if _, ok := known[name]; !ok {
			warns = append(warns, Warning{Message: fmt.Sprintf("unknown parameter %q", name)})
		}
	}

	return errs, warns
}

func validateValue(slot models.Slot, value string) error {
	switch slot.Type {
	case models.SlotNumeric:
		if !numericPattern.MatchString(value) {
			return fmt.Errorf("value %q is not numeric", value)
		}
	case models.SlotEnum:
		for _, v := range slot.EnumValues {
			if v == value {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of %v", value, slot.EnumValues)
	case models.SlotEmail:
		if !emailPattern.MatchString(value) {
			return fmt.Errorf("value %q is not a valid email", value)
		}
	case models.SlotURL:
		if !urlPattern.MatchString(value) {
			return fmt.Errorf("value %q is not a valid url", value)
		}
	}
	if slot.Validation != "" {
		matched, err := regexp.MatchString(slot.Validation, value)
		if err != nil {
			return fmt.Errorf("invalid validation pattern for slot: %w", err)
		}
		if !matched {
			return fmt.Errorf("value %q does not match validation pattern", value)
		}
	}
	return nil
}

// Render substitutes params into text per spec.md §4.E.5. In strict mode,
// any validation error short-circuits rendering and Text is left empty. In
// non-strict mode, rendering proceeds regardless, falling back to a slot's
// default or an empty string for missing values.
func Render(text string, slots []models.Slot, params map[string]string, strict bool) RenderResult {
	errs, warns := Validate(slots, params)
	if strict && len(errs) > 0 {
		return RenderResult{Errors: errs, Warnings: warns}
	}

	rendered := text
	for _, slot := range slots {
		value, ok := params[slot.Name]
		if !ok || value == "" {
			value = slot.Default
		}
		rendered = strings.ReplaceAll(rendered, "{{"+slot.Name+"}}", value)
	}

	return RenderResult{Text: rendered, Errors: errs, Warnings: warns}
}
