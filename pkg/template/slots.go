package template

import (
	"regexp"
	"strings"

	"github.com/kestrel-labs/promptforge/pkg/models"
)

var (
	numericPattern = regexp.MustCompile(`^-?\d+\.?\d*$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	usDatePattern  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlPattern     = regexp.MustCompile(`^https?://\S+$`)
)

// flatten joins a region's token run into its surface string, trimming
// the whitespace tokens the aligner preserves around it.
func flatten(tokens []string) string {
	return strings.TrimSpace(strings.Join(tokens, ""))
}

// classify implements spec.md §4.E.2's slot-typing decision table over a
// variable region's collected examples.
func classify(examples []string) models.SlotType {
	if len(examples) == 0 {
		return models.SlotText
	}

	allMatch := func(re *regexp.Regexp) bool {
		for _, ex := range examples {
			if !re.MatchString(ex) {
				return false
			}
		}
		return true
	}

	if allMatch(numericPattern) {
		return models.SlotNumeric
	}
	if allMatch(isoDatePattern) || allMatch(usDatePattern) {
		return models.SlotDate
	}
	if allMatch(emailPattern) {
		return models.SlotEmail
	}
	if allMatch(urlPattern) {
		return models.SlotURL
	}

	distinct := make(map[string]struct{})
	for _, ex := range examples {
		distinct[ex] = struct{}{}
	}
	if len(distinct) <= 5 && len(examples) >= 3 {
		return models.SlotEnum
	}

	return models.SlotText
}

// nameFor implements spec.md §4.E.2's naming rules for a typed slot at
// position index (0-based, used for the <type>_<index> fallback).
func nameFor(slotType models.SlotType, examples []string, index int) string {
	switch slotType {
	case models.SlotNumeric:
		for _, ex := range examples {
			if strings.Contains(ex, "%") {
				return "percentage"
			}
		}
		for _, ex := range examples {
			if strings.Contains(strings.ToLower(ex), "word") {
				return "word_count"
			}
		}
		return "numeric_" + itoa(index)
	case models.SlotDate:
		return "date"
	case models.SlotEnum:
		if len(examples) > 0 {
			return snakeCase(examples[0]) + "_option"
		}
		return "enum_" + itoa(index)
	case models.SlotEmail:
		return "email_" + itoa(index)
	case models.SlotURL:
		return "url_" + itoa(index)
	default:
		return "text_" + itoa(index)
	}
}

var nonWordPattern = regexp.MustCompile(`[^a-z0-9]+`)

func snakeCase(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	snake := nonWordPattern.ReplaceAllString(lower, "_")
	return strings.Trim(snake, "_")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
