// Package ollama talks to a local Ollama server for on-host embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Ollama server address on the local host
	DefaultBaseURL = "http://localhost:11434"
	// DefaultEmbeddingModel is a 768-dimension sentence embedding model
	DefaultEmbeddingModel = "nomic-embed-text"

	requestTimeout = 30 * time.Second
)

// ErrEmptyText is returned when text is empty
var ErrEmptyText = errors.New("text cannot be empty")

// Client is a minimal HTTP client for the Ollama embeddings API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the given server and model, falling back to
// defaults when either is empty.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// CreateEmbedding returns the model's raw embedding vector for text.
func (c *Client) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}

	if len(out.Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	return out.Embedding, nil
}
