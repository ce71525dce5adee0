package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrel-labs/promptforge/pkg/resilience"
)

const templateExtractionPrompt = `You are an expert prompt engineer. Your task is to generalize a list of similar prompts into a single CANONICAL TEMPLATE.

Guidelines:
1. Analyze patterns: static text (intent) vs dynamic text (entities, names, numbers).
2. Replace dynamic parts with {{variable_name}}. Use descriptive names.
3. The template should cover all provided examples.
4. Output strictly valid JSON: {"template": "...", "variables": ["..."]}

Family size: %d
Prompts:
%s

Your output (JSON only):`

const explanationPrompt = `You are analyzing a cluster of similar prompts to explain why they belong together.

Here are %d prompts in the same family:

%s

Provide a concise explanation (2-3 sentences) of why these prompts are semantically similar and form a family.
Return only the explanation text, no JSON or formatting.`

// chatMessage mirrors the teacher's internal/providers.Message shape,
// trimmed to what a single-turn extraction prompt needs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// RealConfig configures the HTTP-backed Extractor.
type RealConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultRealConfig matches SPEC_FULL.md §7's retry schedule.
func DefaultRealConfig() RealConfig {
	return RealConfig{
		Model:      "gpt-4o-mini",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// RealProvider calls an OpenAI-compatible chat completion endpoint,
// grounded on the teacher's internal/providers request/response shape
// (internal/providers/base.go) and retried via pkg/resilience per the
// spec's 1s/2s/4s schedule, the Go analogue of client.py's
// `_call_with_retry`.
type RealProvider struct {
	cfg    RealConfig
	client *http.Client
}

// NewRealProvider constructs the Extractor backed by a real LLM API. If
// cfg.APIKey is empty, IsAvailable reports false and callers (Processor)
// should use HeuristicProvider instead — mirroring client.py's
// `_is_available` gate.
func NewRealProvider(cfg RealConfig) *RealProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRealConfig().Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRealConfig().MaxRetries
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1/chat/completions"
	}
	return &RealProvider{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// IsAvailable reports whether the provider has credentials configured.
func (r *RealProvider) IsAvailable() bool {
	return r.cfg.APIKey != ""
}

func (r *RealProvider) call(ctx context.Context, prompt string, temperature float64) (string, error) {
	if !r.IsAvailable() {
		return "", fmt.Errorf("llm: real provider not configured (missing API key)")
	}

	body := chatRequest{
		Model:       r.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   2000,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:        r.cfg.MaxRetries,
		InitialBackoff:    time.Second,
		MaxBackoff:        4 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	})

	var content string
	err = retry.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("llm API error (status %d): %s", resp.StatusCode, string(b))
		}

		var decoded chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
			return fmt.Errorf("empty response from LLM")
		}
		content = strings.TrimSpace(decoded.Choices[0].Message.Content)
		return nil
	})

	if err != nil {
		return "", err
	}
	return content, nil
}

// ExtractTemplate implements Extractor.
func (r *RealProvider) ExtractTemplate(ctx context.Context, prompts []string) (Extraction, error) {
	if len(prompts) == 0 {
		return Extraction{}, nil
	}

	content, err := r.call(ctx, fmt.Sprintf(templateExtractionPrompt, len(prompts), numberedPrompts(prompts)), 0.0)
	if err != nil {
		log.Warn().Err(err).Msg("real template extraction failed")
		return Extraction{}, err
	}

	jsonStr := extractJSONObject(content)

	var decoded struct {
		Template  string   `json:"template"`
		Variables []string `json:"variables"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &decoded); err != nil {
		log.Error().Err(err).Str("content", truncate(content, 200)).Msg("failed to decode LLM template JSON")
		return Extraction{Text: content}, nil
	}

	exampleValues := make(map[string][]string)
	for i, v := range decoded.Variables {
		if i >= 5 {
			break
		}
		exampleValues[v] = []string{
			fmt.Sprintf("example_%s_1", v),
			fmt.Sprintf("example_%s_2", v),
		}
	}

	return Extraction{
		Text:          decoded.Template,
		Variables:     decoded.Variables,
		ExampleValues: exampleValues,
	}, nil
}

// GenerateExplanation implements Extractor.
func (r *RealProvider) GenerateExplanation(ctx context.Context, prompts []string) (string, error) {
	if len(prompts) == 0 {
		return "No prompts provided", nil
	}

	explanation, err := r.call(ctx, fmt.Sprintf(explanationPrompt, len(prompts), numberedPrompts(prompts)), 0.3)
	if err != nil {
		return "", err
	}
	return explanation, nil
}

func numberedPrompts(prompts []string) string {
	parts := make([]string, len(prompts))
	for i, p := range prompts {
		parts[i] = fmt.Sprintf("Prompt %d:\n%s", i+1, p)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// extractJSONObject mirrors client.py's fenced-block-and-braces scraping:
// strip ```json fences, then take the substring between the first '{' and
// last '}'.
func extractJSONObject(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
