package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Ollama Provider
// =============================================================================

// OllamaConfig holds configuration for the Ollama provider.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOllamaConfig returns the default Ollama configuration.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.2",
		Timeout: 30 * time.Second,
	}
}

// Ollama talks to a local Ollama server. It has no native chat endpoint
// contract here; conversations are flattened into a single prompt.
type Ollama struct {
	config     OllamaConfig
	httpClient *http.Client
}

// NewOllama creates a new Ollama provider.
func NewOllama(config OllamaConfig) *Ollama {
	defaults := DefaultOllamaConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	return &Ollama{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider's registry name.
func (o *Ollama) Name() string { return "ollama" }

// ollamaRequest is the /api/generate request body.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaResponse is the non-streaming /api/generate response body.
type ollamaResponse struct {
	Response string `json:"response"`
}

// Chat generates a completion via POST /api/generate.
func (o *Ollama) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	model := opts.Model
	if model == "" {
		model = o.config.Model
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  model,
		Prompt: flattenMessages(messages),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := o.config.BaseURL + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError("ollama", "Chat", 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewProviderError("ollama", "Chat", resp.StatusCode, string(respBody), nil)
	}

	var result ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewProviderError("ollama", "Chat", 0, "invalid response body", err)
	}

	return &Response{
		Content: result.Response,
		// Ollama does not report confidence scores.
		Confidence: 0.8,
		Provider:   "ollama",
		Model:      model,
		Tokens:     len(strings.Fields(result.Response)),
	}, nil
}

// Available reports whether the Ollama server answers on /api/tags.
func (o *Ollama) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
