package template

import "github.com/kestrel-labs/promptforge/pkg/models"

// diffVersion implements spec.md §4.E.4's versioning decision table,
// comparing a newly assembled slot set against a family's previously
// active template's slot set.
//
//   - a previously present slot missing from the new set, or present but
//     retyped -> MAJOR
//   - only new slots added, nothing removed or retyped -> MINOR
//   - slot sets identical but the template text differs -> PATCH
//   - nothing changed at all -> NONE
func diffVersion(prev []models.Slot, prevText string, next []models.Slot, nextText string) models.VersionBump {
	prevByName := make(map[string]models.Slot, len(prev))
	for _, s := range prev {
		prevByName[s.Name] = s
	}
	nextByName := make(map[string]models.Slot, len(next))
	for _, s := range next {
		nextByName[s.Name] = s
	}

	for name, p := range prevByName {
		n, ok := nextByName[name]
		if !ok {
			return models.BumpMajor
		}
		if n.Type != p.Type {
			return models.BumpMajor
		}
	}

	added := false
	for name := range nextByName {
		if _, ok := prevByName[name]; !ok {
			added = true
		}
	}
	if added {
		return models.BumpMinor
	}

	if prevText != nextText {
		return models.BumpPatch
	}
	return models.BumpNone
}

// nextVersion applies bump to (major, minor, patch) per spec.md §4.E.4's
// bump formulas.
func nextVersion(major, minor, patch int, bump models.VersionBump) (int, int, int) {
	switch bump {
	case models.BumpMajor:
		return major + 1, 0, 0
	case models.BumpMinor:
		return major, minor + 1, 0
	case models.BumpPatch:
		return major, minor, patch + 1
	default:
		return major, minor, patch
	}
}
