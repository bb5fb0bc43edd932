// Package ollama is a minimal client for a local Ollama runtime. It covers
// the three calls the tool handlers need: single-prompt completion, chat
// flattened to a completion, and model listing.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/DbToolServer/internal/prompt"
)

const (
	// DefaultBaseURL is the standard local Ollama address.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout bounds every request; there are no retries.
	DefaultTimeout = 60 * time.Second
)

// Client talks to one Ollama instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the given base URL. A zero timeout falls
// back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Generate sends a single prompt to /api/generate and returns the
// completion text.
func (c *Client) Generate(ctx context.Context, model, promptText string) (string, error) {
	payload := generateRequest{
		Model:  model,
		Prompt: promptText,
		Stream: false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return "", fmt.Errorf("ollama: %s", errResp.Error)
		}
		return "", fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return result.Response, nil
}

// Chat flattens a transcript to a single prompt ("<role>: <content>" per
// line) and completes it. Ollama's generate endpoint is the only entry
// point this client uses.
func (c *Client) Chat(ctx context.Context, model string, messages []prompt.Message) (string, error) {
	return c.Generate(ctx, model, prompt.FlattenMessages(messages))
}

// ListModels returns the names of the models installed in Ollama.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var result tagsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Ollama API request/response types

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type tagsResponse struct {
	Models []tagModel `json:"models"`
}

type tagModel struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}
