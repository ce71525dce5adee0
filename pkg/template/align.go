// Package template implements the Template Engine (component E):
// token-level alignment across a family's sample prompts, variable-region
// detection, slot typing, template assembly, semantic versioning, and
// rendering/validation. Grounded on spec.md §4.E.1-4.E.6. Extraction is
// the deterministic Align/Assemble path in this package; pkg/llm.Extractor
// is used only by Refine (rewording) and Explain.
package template

import (
	"regexp"
)

// tokenPattern splits text into maximal runs of non-whitespace or maximal
// runs of whitespace, preserving whitespace as its own token so the
// skeleton can be reconstructed losslessly — spec.md §4.E.1 step 1.
var tokenPattern = regexp.MustCompile(`\s+|\S+`)

// Tokenize splits text per spec.md §4.E.1.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// lcsMatchMask returns, for each index of ref, whether that reference
// token matches some token in other under the longest-common-subsequence
// alignment between ref and other.
func lcsMatchMask(ref, other []string) []bool {
	n, m := len(ref), len(other)
	// dp[i][j] = LCS length of ref[i:], other[j:]
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if ref[i] == other[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	matched := make([]bool, n)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case ref[i] == other[j]:
			matched[i] = true
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matched
}

// VariableRegion is a maximal run of consecutive reference-token positions
// that failed to match in at least one other sampled prompt, spec.md
// §4.E.1 step 3.
type VariableRegion struct {
	Start, End int // End exclusive, over the reference token slice
	// Examples holds, per sampled prompt (including the reference), the
	// token sequence that sat at this region's position. A prompt whose
	// structure diverges too much to align contributes no example.
	Examples [][]string
}

// AlignmentResult is the output of aligning a family's sample prompts.
type AlignmentResult struct {
	RefTokens []string
	Regions   []VariableRegion
}

// Align implements spec.md §4.E.1: prompt 1 (samples[0]) is the reference;
// every other prompt is LCS-aligned against it, and reference positions
// that fail to match in ANY other prompt become variable.
func Align(samples []string) AlignmentResult {
	if len(samples) == 0 {
		return AlignmentResult{}
	}

	tokenized := make([][]string, len(samples))
	for i, s := range samples {
		tokenized[i] = Tokenize(s)
	}
	ref := tokenized[0]

	variable := make([]bool, len(ref))
	for _, other := range tokenized[1:] {
		matched := lcsMatchMask(ref, other)
		for i, ok := range matched {
			if !ok {
				variable[i] = true
			}
		}
	}

	regions := collapseRegions(ref, variable, tokenized)
	return AlignmentResult{RefTokens: ref, Regions: regions}
}

// collapseRegions merges consecutive variable positions into regions and
// collects each sampled prompt's differing token run for that region by
// re-running the LCS alignment per sample, matching the non-region
// (anchor) tokens on either side of the region to locate its bounds in
// that sample.
func collapseRegions(ref []string, variable []bool, tokenized [][]string) []VariableRegion {
	var regions []VariableRegion
	i := 0
	for i < len(variable) {
		if !variable[i] {
			i++
			continue
		}
		start := i
		for i < len(variable) && variable[i] {
			i++
		}
		end := i

		region := VariableRegion{Start: start, End: end}
		for _, sample := range tokenized {
			region.Examples = append(region.Examples, extractRegionTokens(ref, sample, start, end))
		}
		regions = append(regions, region)
	}
	return regions
}

// extractRegionTokens finds the token run in sample corresponding to
// ref[start:end] by locating the longest verbatim anchor prefix (ref
// tokens before start) and anchor suffix (ref tokens from end onward)
// inside sample, and returning whatever sample tokens fall between them.
func extractRegionTokens(ref, sample []string, start, end int) []string {
	prefix := ref[:start]
	suffix := ref[end:]

	prefixEnd := 0
	pi := 0
	for si := 0; si < len(sample) && pi < len(prefix); si++ {
		if sample[si] == prefix[pi] {
			pi++
			prefixEnd = si + 1
		}
	}

	suffixStart := len(sample)
	si := len(sample)
	sj := len(suffix)
	for si > prefixEnd && sj > 0 {
		si--
		sj--
		if sample[si] == suffix[sj] {
			suffixStart = si
		} else {
			si++
			sj++
			break
		}
	}
	if suffixStart < prefixEnd {
		suffixStart = prefixEnd
	}

	if prefixEnd >= suffixStart {
		return nil
	}
	return sample[prefixEnd:suffixStart]
}
