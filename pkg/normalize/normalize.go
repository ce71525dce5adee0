// Package normalize implements the Normalizer & Fingerprinter component:
// deterministic text canonicalization plus the exact (SHA-256) and
// near-duplicate (SimHash) fingerprints derived from it.
//
// Everything here is pure and synchronous — no suspension points, no
// randomness, no wall-clock dependence — per the "cooperative async
// pervading pure code" redesign note: only I/O-bound callers suspend.
package normalize

import (
	"regexp"
	"strings"
)

var nonAlnumSpace = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Text canonicalizes raw prompt text: lowercase, strip everything outside
// letters/digits/whitespace, collapse whitespace runs to a single space,
// trim. It is idempotent and deterministic (Text(Text(x)) == Text(x)).
func Text(raw string) string {
	s := strings.ToLower(raw)
	s = nonAlnumSpace.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
