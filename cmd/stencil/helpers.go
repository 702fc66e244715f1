package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/stencil/internal/core/domain"
	"github.com/artpar/stencil/internal/shell/ai"
	"github.com/artpar/stencil/internal/shell/analytics"
	"github.com/artpar/stencil/internal/shell/docker"
	"github.com/artpar/stencil/internal/shell/store"
)

// openStore returns the template store rooted at the configured directory.
func openStore() *store.FSStore {
	return store.NewFSStore(cfg.Templates.Dir, logger)
}

// openAnalytics opens the analytics database, creating its directory first.
func openAnalytics() (*analytics.SQLiteStore, error) {
	dsn := cfg.Database.DSN
	if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return analytics.NewSQLiteStore(dsn)
}

// optionalAnalytics opens the analytics store for commands where recording
// is best-effort. Returns nil when the store cannot be opened.
func optionalAnalytics() analytics.Store {
	s, err := openAnalytics()
	if err != nil {
		logger.Warn("analytics store unavailable", "error", err)
		return nil
	}
	return s
}

// optionalDocker connects to the Docker daemon for commands where image
// inspection is best-effort. Returns nil when the client cannot be created.
func optionalDocker() docker.Client {
	c, err := docker.NewDockerClient(cfg.Docker.Host)
	if err != nil {
		logger.Warn("docker daemon unavailable", "error", err)
		return nil
	}
	return c
}

// newRouter assembles the AI provider chain from configuration. The cache
// may be nil to disable completion caching.
func newRouter(cache analytics.Store) *ai.Router {
	providers := []ai.Provider{
		ai.NewOllama(ai.OllamaConfig{
			BaseURL: cfg.AI.Ollama.URL,
			Model:   cfg.AI.Ollama.Model,
		}),
		ai.NewOpenAI(ai.OpenAIConfig{
			APIKey: cfg.AI.OpenAI.APIKey,
			Model:  cfg.AI.OpenAI.Model,
		}),
		ai.NewAnthropic(ai.AnthropicConfig{
			APIKey: cfg.AI.Anthropic.APIKey,
			Model:  cfg.AI.Anthropic.Model,
		}),
	}
	routerConfig := ai.RouterConfig{
		Default:  cfg.AI.Provider,
		CacheTTL: cfg.AI.CacheTTL,
	}
	return ai.NewRouter(providers, routerConfig, cache, logger)
}

// collectParams merges parameter values from a YAML/JSON file and key=value
// flags. Flag values win over file values.
func collectParams(file string, pairs []string) (map[string]domain.Value, error) {
	params := make(map[string]domain.Value)

	if file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading params file: %w", err)
		}
		var decoded map[string]any
		if err := yaml.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("parsing params file: %w", err)
		}
		for name, rawValue := range decoded {
			v, err := domain.FromYAML(rawValue)
			if err != nil {
				return nil, fmt.Errorf("params file entry %q: %w", name, err)
			}
			params[name] = v
		}
	}

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[name] = domain.ParseScalar(raw)
	}

	return params, nil
}

// parseKeyValues turns KEY=value flag entries into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, expected KEY=value", pair)
		}
		out[k] = v
	}
	return out, nil
}
