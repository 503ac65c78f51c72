package emotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"solace/internal/logging"
)

const defaultTimeout = 5 * time.Second

// Client talks to the emotion vector service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an emotion service client. baseURL is the service
// root, e.g. "http://localhost:8801".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// Analyze posts the text to the service and derives the clinical
// estimates from the returned vector.
func (c *Client) Analyze(ctx context.Context, text string) (Analysis, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return Analysis{}, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.EmotionWarn("emotion service unreachable: %v", err)
		return Analysis{}, fmt.Errorf("emotion service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Analysis{}, fmt.Errorf("emotion service returned status %d", resp.StatusCode)
	}

	var v Vector
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Analysis{}, fmt.Errorf("failed to decode emotion vector: %w", err)
	}
	return Derive(v), nil
}
