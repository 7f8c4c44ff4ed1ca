// Package llm is the language-model service boundary: prompt in,
// structured JSON out, or failure. The pipeline treats any provider
// speaking the OpenAI chat-completions dialect as interchangeable.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jmhart/storyarc/internal/config"
	"github.com/jmhart/storyarc/internal/fault"
)

// Request is one generation call.
type Request struct {
	System      string
	User        string
	Temperature float64
}

// Client generates structured JSON from a prompt. Implementations must
// honor ctx cancellation; callers apply timeouts.
type Client interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	cfg    config.ModelConfig
	client *http.Client
}

// New builds an HTTPClient from model config. Returns nil if the model
// tier is disabled or the API key env var is unset, which routes
// generation straight to the heuristic tiers.
func New(cfg config.ModelConfig) *HTTPClient {
	if !cfg.Enabled || os.Getenv(cfg.APIKeyEnv) == "" {
		return nil
	}
	return &HTTPClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Generate sends the prompt and returns the raw JSON content of the first
// choice. Transport failures, timeouts, non-200 statuses, and empty
// responses all map to fault.ErrServiceUnavailable so callers can treat
// them uniformly.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	temp := req.Temperature
	if temp == 0 {
		temp = 0.3
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature:    temp,
		ResponseFormat: &respFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+os.Getenv(c.cfg.APIKeyEnv))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w: %v", fault.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %v", fault.ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API status %d: %w", resp.StatusCode, fault.ErrServiceUnavailable)
	}

	return parseResponse(respBody)
}

func parseResponse(body []byte) (json.RawMessage, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w: %v", fault.ErrServiceUnavailable, err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("API error %q: %w", resp.Error.Message, fault.ErrServiceUnavailable)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty choices: %w", fault.ErrServiceUnavailable)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("empty content: %w", fault.ErrServiceUnavailable)
	}

	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("model returned invalid JSON: %w", fault.ErrServiceUnavailable)
	}

	return json.RawMessage(content), nil
}
