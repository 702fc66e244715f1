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
// OpenAI Provider
// =============================================================================

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// DefaultOpenAIConfig returns the default OpenAI configuration. The API key
// has no default; it comes from configuration.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:   "https://api.openai.com",
		Model:     "gpt-4",
		MaxTokens: 4000,
		Timeout:   30 * time.Second,
	}
}

// OpenAI talks to the OpenAI chat completions API.
type OpenAI struct {
	config     OpenAIConfig
	httpClient *http.Client
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(config OpenAIConfig) *OpenAI {
	defaults := DefaultOpenAIConfig()
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
	return &OpenAI{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider's registry name.
func (o *OpenAI) Name() string { return "openai" }

// openaiRequest is the chat completions request body.
type openaiRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

// openaiResponse is the subset of the chat completions response we use.
type openaiResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat generates a completion via POST /v1/chat/completions.
func (o *OpenAI) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if o.config.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	model := opts.Model
	if model == "" {
		model = o.config.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = o.config.MaxTokens
	}

	body, err := json.Marshal(openaiRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := o.config.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, NewProviderError("openai", "Chat", 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, NewProviderError("openai", "Chat", resp.StatusCode, string(respBody), nil)
	}

	var result openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, NewProviderError("openai", "Chat", 0, "invalid response body", err)
	}
	if len(result.Choices) == 0 {
		return nil, NewProviderError("openai", "Chat", 0, "response contains no choices", nil)
	}

	return &Response{
		Content:    result.Choices[0].Message.Content,
		Confidence: 0.9,
		Provider:   "openai",
		Model:      model,
		Tokens:     result.Usage.TotalTokens,
	}, nil
}

// Available reports whether an API key is configured.
func (o *OpenAI) Available(ctx context.Context) bool {
	return o.config.APIKey != ""
}
