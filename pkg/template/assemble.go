package template

import (
	"fmt"
	"strings"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

const maxSlotExamples = 10

// Assembly is the product of template assembly: the skeleton text with
// {{slot_name}} placeholders substituted in for each variable region, and
// the ordered slot definitions that fill them. Grounded on spec.md §4.E.3.
type Assembly struct {
	TemplateText string
	Slots        []models.Slot
}

// Assemble turns an AlignmentResult into an Assembly: each variable region
// becomes one typed, named slot, and the reference skeleton has the
// region's tokens replaced by its slot's placeholder.
func Assemble(alignment AlignmentResult) Assembly {
	slots := make([]models.Slot, 0, len(alignment.Regions))
	for i, region := range alignment.Regions {
		examples := regionExamples(region)
		slotType := classify(examples)
		name := nameFor(slotType, examples, i)
		name = dedupeName(name, slots)

		slot := models.Slot{
			Name:     name,
			Type:     slotType,
			Position: i,
			Examples: capExamples(examples, maxSlotExamples),
			Required: true,
		}
		if slotType == models.SlotEnum {
			slot.EnumValues = distinctValues(examples)
		}
		if pattern, ok := validationPattern(slotType); ok {
			slot.Validation = pattern
		}
		slots = append(slots, slot)
	}

	text := renderSkeleton(alignment, slots)
	return Assembly{TemplateText: text, Slots: slots}
}

// regionExamples flattens each sampled prompt's token run for a region into
// its surface string, dropping samples that failed to align at all (an
// empty token run for a non-empty reference region contributes nothing).
func regionExamples(region VariableRegion) []string {
	seen := make(map[string]struct{}, len(region.Examples))
	examples := make([]string, 0, len(region.Examples))
	for _, toks := range region.Examples {
		if len(toks) == 0 {
			continue
		}
		v := flatten(toks)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		examples = append(examples, v)
	}
	return examples
}

func capExamples(examples []string, max int) []string {
	if len(examples) <= max {
		return examples
	}
	return examples[:max]
}

func distinctValues(examples []string) []string {
	seen := make(map[string]struct{}, len(examples))
	var out []string
	for _, ex := range examples {
		if _, ok := seen[ex]; ok {
			continue
		}
		seen[ex] = struct{}{}
		out = append(out, ex)
	}
	return out
}

func validationPattern(t models.SlotType) (string, bool) {
	switch t {
	case models.SlotNumeric:
		return numericPattern.String(), true
	case models.SlotDate:
		return isoDatePattern.String(), true
	case models.SlotEmail:
		return emailPattern.String(), true
	case models.SlotURL:
		return urlPattern.String(), true
	default:
		return "", false
	}
}

func dedupeName(name string, existing []models.Slot) string {
	count := 1
	candidate := name
	for {
		clash := false
		for _, s := range existing {
			if s.Name == candidate {
				clash = true
				break
			}
		}
		if !clash {
			return candidate
		}
		count++
		candidate = fmt.Sprintf("%s_%d", name, count)
	}
}

// renderSkeleton rebuilds the reference token stream with each region's
// token run replaced by a single {{slot_name}} placeholder token.
func renderSkeleton(alignment AlignmentResult, slots []models.Slot) string {
	var b strings.Builder
	regionAt := make(map[int]models.Slot, len(alignment.Regions))
	for i, region := range alignment.Regions {
		regionAt[region.Start] = slots[i]
	}
	// regionEnd maps a region's Start to its End so we can skip the
	// reference tokens the region replaces.
	regionEnd := make(map[int]int, len(alignment.Regions))
	for _, region := range alignment.Regions {
		regionEnd[region.Start] = region.End
	}

	i := 0
	for i < len(alignment.RefTokens) {
		if slot, ok := regionAt[i]; ok {
			b.WriteString("{{")
			b.WriteString(slot.Name)
			b.WriteString("}}")
			i = regionEnd[i]
			continue
		}
		b.WriteString(alignment.RefTokens[i])
		i++
	}
	return b.String()
}
