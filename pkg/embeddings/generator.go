package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kestrel-labs/promptforge/pkg/cache"
	"github.com/kestrel-labs/promptforge/pkg/resilience"
)

// EmbeddingGenerator genera embeddings per testi
type EmbeddingGenerator interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// GeneratorConfig configurazione per il generatore di embeddings
type GeneratorConfig struct {
	Provider   string        // "cohere", "openai", "huggingface"
	APIKey     string        // API key del provider
	Model      string        // Nome del modello
	Timeout    time.Duration // Timeout per le richieste
	MaxRetries int           // Numero massimo di retry
	BatchSize  int           // Dimensione batch per batch processing
}

// DefaultGeneratorConfig restituisce una configurazione di default
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		Provider:   "cohere",
		Model:      "embed-english-light-v3.0",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		BatchSize:  96,
	}
}

// CachedGenerator wraps a generator with the content-addressed cache: a
// text's embedding is keyed by HashKey(text, model), so the same prompt
// requested against two different models is never confused, and repeating
// the exact bytes is always an idempotent cache hit regardless of which
// worker computed it first (spec's "safe concurrent read, idempotent
// concurrent write" requirement).
type CachedGenerator struct {
	generator EmbeddingGenerator
	cache     cache.Cache
	ttl       time.Duration
}

// NewCachedGenerator wraps generator with backend as its embedding cache.
func NewCachedGenerator(generator EmbeddingGenerator, backend cache.Cache, ttl time.Duration) *CachedGenerator {
	if ttl <= 0 {
		ttl = 0 // 0 means "no expiry" to the underlying Cache implementations
	}
	return &CachedGenerator{generator: generator, cache: backend, ttl: ttl}
}

func (c *CachedGenerator) key(text string) string {
	return cache.HashKey(text, c.generator.ModelName())
}

// Generate genera un embedding con caching
func (c *CachedGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if raw, err := c.cache.Get(ctx, key); err == nil {
		var embedding []float32
		if jsonErr := json.Unmarshal(raw, &embedding); jsonErr == nil {
			log.Debug().Str("key", key).Msg("Embedding cache hit")
			return embedding, nil
		}
	}

	embedding, err := c.generator.Generate(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(embedding); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to cache embedding")
		}
	}

	log.Debug().Str("key", key).Msg("Embedding generated and cached")
	return embedding, nil
}

// GenerateBatch genera embeddings per un batch di testi, riutilizzando la
// cache per ogni testo individualmente
func (c *CachedGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	uncachedIndices := make([]int, 0)
	uncachedTexts := make([]string, 0)

	for i, text := range texts {
		key := c.key(text)
		raw, err := c.cache.Get(ctx, key)
		if err != nil {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
			continue
		}
		var embedding []float32
		if jsonErr := json.Unmarshal(raw, &embedding); jsonErr != nil {
			uncachedIndices = append(uncachedIndices, i)
			uncachedTexts = append(uncachedTexts, text)
			continue
		}
		results[i] = embedding
	}

	if len(uncachedTexts) > 0 {
		embeddings, err := c.generator.GenerateBatch(ctx, uncachedTexts)
		if err != nil {
			return nil, err
		}

		for i, embedding := range embeddings {
			idx := uncachedIndices[i]
			results[idx] = embedding
			if raw, err := json.Marshal(embedding); err == nil {
				_ = c.cache.Set(ctx, c.key(uncachedTexts[i]), raw, c.ttl)
			}
		}
	}

	log.Debug().
		Int("total", len(texts)).
		Int("cached", len(texts)-len(uncachedTexts)).
		Int("generated", len(uncachedTexts)).
		Msg("Batch embeddings generated")

	return results, nil
}

// Dimensions restituisce la dimensione degli embeddings
func (c *CachedGenerator) Dimensions() int {
	return c.generator.Dimensions()
}

// ModelName restituisce il nome del modello
func (c *CachedGenerator) ModelName() string {
	return c.generator.ModelName()
}

// CacheStats restituisce statistiche sul cache
func (c *CachedGenerator) CacheStats() cache.CacheStats {
	return c.cache.Stats()
}

// ClearCache svuota il cache
func (c *CachedGenerator) ClearCache(ctx context.Context) error {
	log.Info().Msg("Embedding cache cleared")
	return c.cache.Clear(ctx)
}

// CohereGenerator implementa generatore per Cohere
type CohereGenerator struct {
	config *GeneratorConfig
	client *http.Client
}

// NewCohereGenerator crea un nuovo generatore Cohere
func NewCohereGenerator(config *GeneratorConfig) *CohereGenerator {
	if config == nil {
		config = DefaultGeneratorConfig()
	}

	return &CohereGenerator{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Generate genera un embedding usando Cohere API
func (c *CohereGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateBatch genera embeddings per un batch di testi
func (c *CohereGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty texts array")
	}

	requestBody := map[string]interface{}{
		"texts":      texts,
		"model":      c.config.Model,
		"input_type": "search_query",
		"truncate":   "END",
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp *http.Response

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxRetries:        c.config.MaxRetries,
		InitialBackoff:    time.Second,
		MaxBackoff:        4 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            false,
	})

	err = retry.Execute(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", "https://api.cohere.ai/v1/embed", bytes.NewReader(jsonData))
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		req.Header.Set("Content-Type", "application/json")

		var doErr error
		resp, doErr = c.client.Do(req)
		if doErr != nil {
			return doErr
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed after %d retries: %w", c.config.MaxRetries, err)
	}
	defer resp.Body.Close()

	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(result.Embeddings), len(texts))
	}

	log.Debug().
		Int("count", len(texts)).
		Str("model", c.config.Model).
		Msg("Generated embeddings via Cohere")

	return result.Embeddings, nil
}

// Dimensions restituisce la dimensione degli embeddings
func (c *CohereGenerator) Dimensions() int {
	// Cohere embed-english-light-v3.0 genera embeddings di 384 dimensioni
	// embed-english-v3.0 genera 1024 dimensioni
	if c.config.Model == "embed-english-light-v3.0" {
		return 384
	}
	return 1024
}

// ModelName restituisce il nome del modello
func (c *CohereGenerator) ModelName() string {
	return c.config.Model
}

// OpenAIGenerator implementa generatore per OpenAI
type OpenAIGenerator struct {
	config *GeneratorConfig
	client *http.Client
}

// NewOpenAIGenerator crea un nuovo generatore OpenAI
func NewOpenAIGenerator(config *GeneratorConfig) *OpenAIGenerator {
	if config == nil {
		config = DefaultGeneratorConfig()
		config.Provider = "openai"
		config.Model = "text-embedding-3-small"
	}

	return &OpenAIGenerator{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Generate genera un embedding usando OpenAI API
func (o *OpenAIGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := o.GenerateBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateBatch genera embeddings per un batch di testi
func (o *OpenAIGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty texts array")
	}

	requestBody := map[string]interface{}{
		"input": texts,
		"model": o.config.Model,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	log.Debug().
		Int("count", len(texts)).
		Str("model", o.config.Model).
		Msg("Generated embeddings via OpenAI")

	return embeddings, nil
}

// Dimensions restituisce la dimensione degli embeddings
func (o *OpenAIGenerator) Dimensions() int {
	// text-embedding-3-small: 1536 dimensioni
	// text-embedding-3-large: 3072 dimensioni
	if o.config.Model == "text-embedding-3-large" {
		return 3072
	}
	return 1536
}

// ModelName restituisce il nome del modello
func (o *OpenAIGenerator) ModelName() string {
	return o.config.Model
}

// NewGenerator builds the raw (uncached) generator for config.Provider. Wrap
// the result with NewCachedGenerator to get the content-addressed cache.
func NewGenerator(config *GeneratorConfig) (EmbeddingGenerator, error) {
	if config == nil {
		config = DefaultGeneratorConfig()
	}

	switch config.Provider {
	case "cohere":
		return NewCohereGenerator(config), nil
	case "openai":
		return NewOpenAIGenerator(config), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}
