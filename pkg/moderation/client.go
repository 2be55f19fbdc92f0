// Package moderation provides toxicity scoring for the flow interpreter's
// moderation gate.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client scores a text for toxicity, returning a value in [0,1]. The scoring
// model itself is external; implementations are injected into the
// interpreter at construction time.
type Client interface {
	Score(ctx context.Context, text string) (float64, error)
}

const defaultTimeout = 10 * time.Second

// HTTPClient scores text against a remote scorer service.
type HTTPClient struct {
	url    string
	client *http.Client
}

// NewHTTPClient creates a scorer client for the given service URL.
func NewHTTPClient(url string) *HTTPClient {
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score posts the text to the scorer service and returns its score.
func (c *HTTPClient) Score(ctx context.Context, text string) (float64, error) {
	payload, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create score request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("scorer request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read scorer response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("scorer returned HTTP %d: %s", resp.StatusCode, body)
	}

	var parsed scoreResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to decode scorer response: %w", err)
	}

	return parsed.Score, nil
}
