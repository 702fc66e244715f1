// Package ai integrates chat-completion providers for template assistance.
// This is part of the Imperative Shell - it talks to provider HTTP APIs and
// the analytics store; prompt construction and response parsing stay in
// plain functions so they can be tested without a network.
package ai

import (
	"context"
	"strings"
)

// =============================================================================
// Messages
// =============================================================================

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes one chat call. Zero values use the provider's defaults.
type Options struct {
	// Model overrides the provider's configured model.
	Model string

	// MaxTokens bounds the response length for providers that support it.
	MaxTokens int
}

// Response is a normalized provider reply.
type Response struct {
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	Tokens     int     `json:"tokens"`
	Cached     bool    `json:"cached"`
}

// =============================================================================
// Provider Interface
// =============================================================================

// Provider defines the interface for a chat-completion backend.
type Provider interface {
	// Name returns the provider's registry name.
	Name() string

	// Chat generates a completion for the given conversation.
	Chat(ctx context.Context, messages []Message, opts Options) (*Response, error)

	// Available reports whether the provider can serve requests right now.
	Available(ctx context.Context) bool
}

// flattenMessages joins a conversation into a single prompt for providers
// without a native chat format.
func flattenMessages(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			b.WriteString("System: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// splitSystem separates system messages from the conversation for providers
// that take the system prompt as a dedicated field. Multiple system messages
// are joined with blank lines.
func splitSystem(messages []Message) (string, []Message) {
	var (
		system []string
		rest   []Message
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}
