package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// Anthropic Provider
// =============================================================================

// anthropicVersion is the API version header required on every request.
const anthropicVersion = "2023-06-01"

// AnthropicConfig holds configuration for the Anthropic provider.
type AnthropicConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultAnthropicConfig returns the default Anthropic configuration. The
// API key has no default; it comes from configuration.
func DefaultAnthropicConfig() AnthropicConfig {
	return AnthropicConfig{
		BaseURL:   "https://api.anthropic.com",
		Model:     "claude-3-sonnet-20240229",
		MaxTokens: 4000,
		Timeout:   30 * time.Second,
	}
}

// Anthropic talks to the Anthropic messages API. System messages are pulled
// out of the conversation and sent in the dedicated system field.
type Anthropic struct {
	config     AnthropicConfig
	httpClient *http.Client
}

// NewAnthropic creates a new Anthropic provider.
func NewAnthropic(config AnthropicConfig) *Anthropic {
	defaults := DefaultAnthropicConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	return &Anthropic{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider's registry name.
func (a *Anthropic) Name() string { return "anthropic" }

// anthropicRequest is the messages API request body.
type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

// anthropicResponse is the subset of the messages API response we use.
type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat generates a completion via POST /v1/messages.
func (a *Anthropic) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if a.config.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}

	model := opts.Model
	if model == "" {
		model = a.config.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.config.MaxTokens
	}

	system, rest := splitSystem(messages)

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  rest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := a.config.BaseURL + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError("anthropic", "Chat", 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewProviderError("anthropic", "Chat", resp.StatusCode, string(respBody), nil)
	}

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewProviderError("anthropic", "Chat", 0, "invalid response body", err)
	}
	if len(result.Content) == 0 {
		return nil, NewProviderError("anthropic", "Chat", 0, "response contains no content", nil)
	}

	return &Response{
		Content:    result.Content[0].Text,
		Confidence: 0.9,
		Provider:   "anthropic",
		Model:      model,
		Tokens:     result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}

// Available reports whether an API key is configured.
func (a *Anthropic) Available(ctx context.Context) bool {
	return a.config.APIKey != ""
}
