package ingestworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kestrel-labs/promptforge/pkg/resilience"
)

// DefaultPollInterval is spec.md §6's log-export status poll interval.
const DefaultPollInterval = 5 * time.Second

// LogExportConfig configures the external log-export adapter.
type LogExportConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
}

// LogExportClient implements spec.md §6's five-step external protocol:
// create export -> start -> poll until completed -> fetch download URL ->
// fetch the signed URL's JSON Lines body.
type LogExportClient struct {
	cfg   LogExportConfig
	http  *http.Client
	retry *resilience.Retry
}

// NewLogExportClient builds a client with the spec's default 30s timeout.
func NewLogExportClient(cfg LogExportConfig) *LogExportClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &LogExportClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		retry: resilience.NewRetry(resilience.RetryConfig{
			MaxRetries:        3,
			InitialBackoff:    time.Second,
			MaxBackoff:        4 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            false,
		}),
	}
}

type createExportRequest struct {
	Filters       map[string]interface{} `json:"filters"`
	RequestedData []string               `json:"requested_data"`
}

type createExportResponse struct {
	ID string `json:"id"`
}

type exportStatusResponse struct {
	Status string `json:"status"`
}

type downloadResponse struct {
	SignedURL string `json:"signed_url"`
}

// FetchSince runs the full five-step protocol for logs modified since
// timeMin, returning the raw JSON Lines body.
func (c *LogExportClient) FetchSince(ctx context.Context, timeMin time.Time) ([]byte, error) {
	id, err := c.createExport(ctx, timeMin)
	if err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	if err := c.startExport(ctx, id); err != nil {
		return nil, fmt.Errorf("start export: %w", err)
	}
	if err := c.pollUntilComplete(ctx, id); err != nil {
		return nil, fmt.Errorf("poll export: %w", err)
	}
	signedURL, err := c.download(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch download url: %w", err)
	}
	body, err := c.fetchSignedURL(ctx, signedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch signed url: %w", err)
	}
	return body, nil
}

// createExport implements step 1: POST /logs/exports.
func (c *LogExportClient) createExport(ctx context.Context, timeMin time.Time) (string, error) {
	reqBody := createExportRequest{
		Filters:       map[string]interface{}{"time_min": timeMin.Format(time.RFC3339)},
		RequestedData: []string{"prompt", "response", "metadata"},
	}
	var out createExportResponse
	err := c.retry.Execute(ctx, func() error {
		return c.postJSON(ctx, "/logs/exports", reqBody, &out)
	})
	return out.ID, err
}

// startExport implements step 2: POST /logs/exports/{id}/start.
func (c *LogExportClient) startExport(ctx context.Context, id string) error {
	return c.retry.Execute(ctx, func() error {
		return c.postJSON(ctx, fmt.Sprintf("/logs/exports/%s/start", id), nil, nil)
	})
}

// pollUntilComplete implements step 3. This loop is not retry-wrapped:
// per spec.md §5/§7, it polls until the export completes or the caller's
// context is cancelled — an unready status is not a transient failure to
// retry, it's the expected steady state between polls.
func (c *LogExportClient) pollUntilComplete(ctx context.Context, id string) error {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var status exportStatusResponse
		if err := c.getJSON(ctx, fmt.Sprintf("/logs/exports/%s", id), &status); err != nil {
			return err
		}
		switch status.Status {
		case "completed", "success":
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// download implements step 4: GET /logs/exports/{id}/download.
func (c *LogExportClient) download(ctx context.Context, id string) (string, error) {
	var out downloadResponse
	err := c.retry.Execute(ctx, func() error {
		return c.getJSON(ctx, fmt.Sprintf("/logs/exports/%s/download", id), &out)
	})
	return out.SignedURL, err
}

// fetchSignedURL implements step 5: fetch signed_url -> JSON Lines body.
func (c *LogExportClient) fetchSignedURL(ctx context.Context, signedURL string) ([]byte, error) {
	var body []byte
	err := c.retry.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("signed url fetch status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}

func (c *LogExportClient) postJSON(ctx context.Context, path string, reqBody, out interface{}) error {
	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *LogExportClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *LogExportClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("log-export request to %s failed with status %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
