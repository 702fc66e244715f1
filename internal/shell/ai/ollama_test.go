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

func TestOllamaChat(t *testing.T) {
	var received ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Write([]byte(`{"response": "Use the fastapi template."}`))
	}))
	defer server.Close()

	provider := NewOllama(OllamaConfig{BaseURL: server.URL})

	resp, err := provider.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You help with templates."},
		{Role: RoleUser, Content: "Which template fits a Python API?"},
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "Use the fastapi template.", resp.Content)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.InDelta(t, 0.8, resp.Confidence, 0.001)
	assert.Equal(t, 4, resp.Tokens)
	assert.False(t, resp.Cached)

	assert.Equal(t, "llama3.2", received.Model)
	assert.False(t, received.Stream)
	assert.Contains(t, received.Prompt, "System: You help with templates.")
	assert.Contains(t, received.Prompt, "User: Which template fits a Python API?")
}

func TestOllamaChatModelOverride(t *testing.T) {
	var received ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`{"response": "ok"}`))
	}))
	defer server.Close()

	provider := NewOllama(OllamaConfig{BaseURL: server.URL})

	resp, err := provider.Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
	}, Options{Model: "codellama"})

	require.NoError(t, err)
	assert.Equal(t, "codellama", received.Model)
	assert.Equal(t, "codellama", resp.Model)
}

func TestOllamaChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	provider := NewOllama(OllamaConfig{BaseURL: server.URL})

	_, err := provider.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "ollama", provErr.Provider)
	assert.Equal(t, http.StatusNotFound, provErr.Status)
	assert.Contains(t, provErr.Message, "model not found")
}

func TestOllamaAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models": []}`))
	}))
	defer server.Close()

	provider := NewOllama(OllamaConfig{BaseURL: server.URL})
	assert.True(t, provider.Available(context.Background()))
}

func TestOllamaAvailableServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := NewOllama(OllamaConfig{BaseURL: server.URL})
	assert.False(t, provider.Available(context.Background()))
}
