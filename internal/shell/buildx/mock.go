package buildx

import (
	"context"
	"strings"
	"sync"
)

// =============================================================================
// Mock Runner
// =============================================================================

// MockResponse defines the response for a command pattern.
type MockResponse struct {
	Output []byte
	Err    error
}

// MockRunner implements Runner for testing. It records every invocation and
// replays configured responses, matched on the first two argv tokens
// (e.g. "buildx build").
type MockRunner struct {
	mu sync.Mutex

	// Calls records all executed argv slices for verification.
	Calls [][]string

	// Responses maps command patterns to responses.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse
}

// NewMockRunner creates a new MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Calls:     make([][]string, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse adds a response for a command pattern.
func (m *MockRunner) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

func (m *MockRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, args)

	end := len(args)
	if end > 2 {
		end = 2
	}
	key := strings.Join(args[:end], " ")

	if resp, ok := m.Responses[key]; ok {
		return resp.Output, resp.Err
	}

	return m.DefaultResponse.Output, m.DefaultResponse.Err
}
