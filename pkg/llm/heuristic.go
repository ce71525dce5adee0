package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// HeuristicProvider is the deterministic, always-available Extractor: no
// network call, no API key, reasonable output. Ported from
// mock_client.py's MockLLMClient — base text is the family's first prompt,
// variables are detected across every member via bracket-style patterns
// ({{var}}, {var}, $var, [var]) and substituted uniformly for {{var}}.
type HeuristicProvider struct{}

// NewHeuristicProvider constructs the fallback Extractor.
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

var bracketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`),
	regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`),
	regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)`),
	regexp.MustCompile(`\[([a-zA-Z_][a-zA-Z0-9_]*)\]`),
}

func detectVariables(text string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, re := range bracketPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			name := m[1]
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// ExtractTemplate implements Extractor.
func (h *HeuristicProvider) ExtractTemplate(ctx context.Context, prompts []string) (Extraction, error) {
	if len(prompts) == 0 {
		return Extraction{}, nil
	}

	varSet := make(map[string]struct{})
	for _, p := range prompts {
		for _, v := range detectVariables(p) {
			varSet[v] = struct{}{}
		}
	}

	variables := make([]string, 0, len(varSet))
	for v := range varSet {
		variables = append(variables, v)
	}
	sort.Strings(variables)

	templateText := prompts[0]
	for _, v := range variables {
		q := regexp.QuoteMeta(v)
		re := regexp.MustCompile(`\{\{` + q + `\}\}|\{` + q + `\}|\$` + q + `|\[` + q + `\]`)
		templateText = re.ReplaceAllLiteralString(templateText, "{{"+v+"}}")
	}

	exampleValues := make(map[string][]string)
	for i, v := range variables {
		if i >= 3 {
			break
		}
		exampleValues[v] = []string{
			fmt.Sprintf("example_%s_1", v),
			fmt.Sprintf("example_%s_2", v),
		}
	}

	return Extraction{
		Text:          templateText,
		Variables:     variables,
		ExampleValues: exampleValues,
	}, nil
}

// GenerateExplanation implements Extractor.
func (h *HeuristicProvider) GenerateExplanation(ctx context.Context, prompts []string) (string, error) {
	if len(prompts) == 0 {
		return "No prompts provided", nil
	}

	common := make(map[string]struct{})
	for _, v := range detectVariables(prompts[0]) {
		common[v] = struct{}{}
	}
	for _, p := range prompts[1:] {
		next := make(map[string]struct{})
		for _, v := range detectVariables(p) {
			next[v] = struct{}{}
		}
		for v := range common {
			if _, ok := next[v]; !ok {
				delete(common, v)
			}
		}
	}

	names := make([]string, 0, len(common))
	for v := range common {
		names = append(names, v)
	}
	sort.Strings(names)
	if len(names) > 3 {
		names = names[:3]
	}

	return fmt.Sprintf(
		"This family contains %d prompts with similar structure. They share %d common variables: %s.",
		len(prompts), len(common), strings.Join(names, ", "),
	), nil
}
