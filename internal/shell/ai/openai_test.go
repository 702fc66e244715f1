package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChat(t *testing.T) {
	var received openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Here you go."}}],
			"usage": {"total_tokens": 42}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key"})

	resp, err := provider.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You help with templates."},
		{Role: RoleUser, Content: "Which template fits a Python API?"},
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "Here you go.", resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, "gpt-4", resp.Model)
	assert.InDelta(t, 0.9, resp.Confidence, 0.001)
	assert.Equal(t, 42, resp.Tokens)

	assert.Equal(t, "gpt-4", received.Model)
	assert.Equal(t, 4000, received.MaxTokens)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, RoleSystem, received.Messages[0].Role)
	assert.Equal(t, "Which template fits a Python API?", received.Messages[1].Content)
}

func TestOpenAIChatMissingKey(t *testing.T) {
	provider := NewOpenAI(OpenAIConfig{})

	_, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestOpenAIChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	provider := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key"})

	_, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.Status)
	assert.Contains(t, provErr.Message, "rate limit exceeded")
}

func TestOpenAIChatNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 0}}`))
	}))
	defer server.Close()

	provider := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key"})

	_, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "no choices")
}

func TestOpenAIAvailable(t *testing.T) {
	assert.False(t, NewOpenAI(OpenAIConfig{}).Available(context.Background()))
	assert.True(t, NewOpenAI(OpenAIConfig{APIKey: "test-key"}).Available(context.Background()))
}
