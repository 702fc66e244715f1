package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/artpar/stencil/internal/core/domain"
)

// =============================================================================
// Assistant
// =============================================================================

// systemPrompt frames every assistant conversation.
const systemPrompt = `You are an expert DevOps assistant specializing in container templates and application architecture.

Your capabilities include:
1. Recommending optimal container templates for a described project
2. Suggesting configuration parameter values with explanations
3. Explaining what a template generates and when to use it
4. Explaining containerization best practices

Guidelines:
- Ask clarifying questions when requirements are unclear
- Provide specific, actionable recommendations
- Explain your reasoning for template choices
- Always consider security, performance, and maintainability
- Be concise but thorough in explanations`

// TemplateInfo describes one selectable template in a recommendation prompt.
type TemplateInfo struct {
	ID          string
	Name        string
	Description string
	Category    string
}

// Recommendation is a parsed template recommendation.
type Recommendation struct {
	Template     string
	Confidence   float64
	Reasoning    string
	Parameters   map[string]any
	Alternatives []string
}

// Assistant answers template questions through the provider router.
type Assistant struct {
	router *Router
	logger *slog.Logger
}

// NewAssistant creates a new assistant.
func NewAssistant(router *Router, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		router: router,
		logger: logger,
	}
}

// Recommend asks for the best template match for a project description and
// parses the model's JSON answer. Further recommended templates are folded
// into the primary recommendation's alternatives.
func (a *Assistant) Recommend(ctx context.Context, description string, templates []TemplateInfo) (*Recommendation, error) {
	prompt := recommendPrompt(description, templates)

	resp, err := a.router.Chat(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: prompt},
	}, Options{})
	if err != nil {
		return nil, err
	}

	recs, err := parseRecommendations(resp.Content)
	if err != nil {
		return nil, err
	}

	primary := recs[0]
	for _, rec := range recs[1:] {
		if rec.Template != "" && rec.Template != primary.Template && !contains(primary.Alternatives, rec.Template) {
			primary.Alternatives = append(primary.Alternatives, rec.Template)
		}
	}

	a.logger.Debug("template recommended",
		"template", primary.Template,
		"confidence", primary.Confidence,
		"provider", resp.Provider,
	)

	return &primary, nil
}

// Explain asks for a plain-language explanation of a resolved template.
func (a *Assistant) Explain(ctx context.Context, id string, def *domain.Definition) (string, error) {
	resp, err := a.router.Chat(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: explainPrompt(id, def)},
	}, Options{})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// recommendPrompt builds the recommendation request. The response contract
// mirrors the parse side: a JSON object with a recommendations array.
func recommendPrompt(description string, templates []TemplateInfo) string {
	var b strings.Builder
	b.WriteString("Recommend the best container templates for this project.\n\n")
	b.WriteString("Project description: ")
	b.WriteString(description)
	b.WriteString("\n\nAvailable templates:\n")
	for _, t := range templates {
		fmt.Fprintf(&b, "- %s: %s", t.ID, t.Name)
		if t.Description != "" {
			fmt.Fprintf(&b, " - %s", t.Description)
		}
		if t.Category != "" {
			fmt.Fprintf(&b, " (%s)", t.Category)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Recommend the most suitable templates, best first, with:
1. Template name (use the identifier from the list)
2. Confidence score (0.0-1.0)
3. Reasoning for the recommendation
4. Suggested parameter values
5. Alternative templates to consider

Format your response as JSON:
{
  "recommendations": [
    {
      "template_name": "apps/python/fastapi",
      "confidence": 0.95,
      "reasoning": "This template fits because...",
      "parameters": {"param1": "value1"},
      "alternatives": ["other/template"]
    }
  ]
}
`)
	return b.String()
}

// explainPrompt builds the explanation request from a resolved definition.
func explainPrompt(id string, def *domain.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain this container template to a developer deciding whether to use it.\n\n")
	fmt.Fprintf(&b, "Template: %s (%s, version %s, category %s)\n", id, def.Name, def.Version, def.Category)
	if def.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", def.Description)
	}

	if names := def.ParameterNames(); len(names) > 0 {
		b.WriteString("\nParameters:\n")
		for _, name := range names {
			spec := def.Parameters[name]
			fmt.Fprintf(&b, "- %s (%s)", name, spec.Type)
			if spec.Description != "" {
				fmt.Fprintf(&b, ": %s", spec.Description)
			}
			if spec.Default != nil {
				fmt.Fprintf(&b, " [default: %s]", spec.Default)
			}
			b.WriteString("\n")
		}
	}

	if groups := def.FileGroups(); len(groups) > 0 {
		b.WriteString("\nGenerated files:\n")
		for _, group := range groups {
			for _, file := range def.Files[group] {
				fmt.Fprintf(&b, "- %s (%s)\n", file, group)
			}
		}
	}

	b.WriteString("\nCover: what the template generates, when to use it, and how the parameters change the output. Be concise.")
	return b.String()
}

// =============================================================================
// Response Parsing
// =============================================================================

// recommendationPayload is the JSON contract the model is asked to follow.
type recommendationPayload struct {
	Recommendations []struct {
		TemplateName string         `json:"template_name"`
		Confidence   float64        `json:"confidence"`
		Reasoning    string         `json:"reasoning"`
		Parameters   map[string]any `json:"parameters"`
		Alternatives []string       `json:"alternatives"`
	} `json:"recommendations"`
}

// parseRecommendations extracts the JSON object embedded in a model reply
// and decodes it. Models often wrap the JSON in prose; everything outside
// the outermost braces is ignored.
func parseRecommendations(content string) ([]Recommendation, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, ErrNoRecommendation
	}

	var payload recommendationPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRecommendation, err)
	}
	if len(payload.Recommendations) == 0 {
		return nil, ErrNoRecommendation
	}

	recs := make([]Recommendation, len(payload.Recommendations))
	for i, rec := range payload.Recommendations {
		recs[i] = Recommendation{
			Template:     rec.TemplateName,
			Confidence:   rec.Confidence,
			Reasoning:    rec.Reasoning,
			Parameters:   rec.Parameters,
			Alternatives: rec.Alternatives,
		}
	}
	return recs, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// Chat Session
// =============================================================================

// maxSessionMessages bounds how much conversation history rides along with
// each request.
const maxSessionMessages = 20

// Session is one interactive conversation. It is not safe for concurrent
// use; the chat loop drives it from a single goroutine.
type Session struct {
	router   *Router
	messages []Message
}

// NewSession creates an empty conversation over the router.
func NewSession(router *Router) *Session {
	return &Session{router: router}
}

// Send submits one user line and returns the assistant's reply. History is
// kept across calls and trimmed to the most recent turns.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.messages = append(s.messages, Message{Role: RoleUser, Content: text})

	conversation := make([]Message, 0, len(s.messages)+1)
	conversation = append(conversation, Message{Role: RoleSystem, Content: systemPrompt})
	conversation = append(conversation, s.messages...)

	resp, err := s.router.Chat(ctx, conversation, Options{})
	if err != nil {
		return "", err
	}

	s.messages = append(s.messages, Message{Role: RoleAssistant, Content: resp.Content})
	if len(s.messages) > maxSessionMessages {
		s.messages = s.messages[len(s.messages)-maxSessionMessages:]
	}

	return resp.Content, nil
}

// History returns a copy of the conversation so far, system prompt excluded.
func (s *Session) History() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
