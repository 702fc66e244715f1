package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/stencil/internal/core/buildplan"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Templates TemplatesConfig `mapstructure:"templates"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Build     BuildConfig     `mapstructure:"build"`
	Docs      DocsConfig      `mapstructure:"docs"`
	Test      TestConfig      `mapstructure:"test"`
	AI        AIConfig        `mapstructure:"ai"`
	Log       LogConfig       `mapstructure:"log"`
}

// TemplatesConfig holds template store configuration.
type TemplatesConfig struct {
	// Dir is the root directory of the template tree.
	Dir string `mapstructure:"dir"`
}

// DatabaseConfig holds the analytics database configuration.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// BuildConfig holds multi-arch build configuration.
type BuildConfig struct {
	// Builder is the buildx builder instance to use.
	Builder string `mapstructure:"builder"`

	// Platforms are the default target platforms when neither the command
	// line nor the template declares any.
	Platforms []string `mapstructure:"platforms"`
}

// DocsConfig holds documentation generation configuration.
type DocsConfig struct {
	// Dir is the directory documentation is written into.
	Dir string `mapstructure:"dir"`
}

// TestConfig holds template test harness configuration.
type TestConfig struct {
	BuildTimeout   time.Duration `mapstructure:"build_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
}

// AIConfig holds AI assistant configuration.
type AIConfig struct {
	// Provider is the preferred provider: "ollama", "openai" or "anthropic".
	// When it is unavailable the first available provider is used instead.
	Provider string `mapstructure:"provider"`

	// CacheTTL is how long AI completions are cached.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	Ollama    OllamaConfig    `mapstructure:"ollama"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaConfig holds local Ollama provider configuration.
type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI provider configuration.
type OpenAIConfig struct {
	// APIKey is set via STENCIL_AI_OPENAI_API_KEY.
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AnthropicConfig holds Anthropic provider configuration.
type AnthropicConfig struct {
	// APIKey is set via STENCIL_AI_ANTHROPIC_API_KEY.
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("templates.dir", "templates")
	v.SetDefault("database.dsn", "./data/stencil.db")
	v.SetDefault("docker.host", "")
	v.SetDefault("build.builder", buildplan.DefaultBuilder)
	v.SetDefault("build.platforms", buildplan.DefaultPlatforms())
	v.SetDefault("docs.dir", "docs")
	v.SetDefault("test.build_timeout", "5m")
	v.SetDefault("test.command_timeout", "60s")
	v.SetDefault("ai.provider", "ollama")
	v.SetDefault("ai.cache_ttl", "24h")
	v.SetDefault("ai.ollama.url", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "llama3.2")
	v.SetDefault("ai.openai.api_key", "")
	v.SetDefault("ai.openai.model", "gpt-4")
	v.SetDefault("ai.anthropic.api_key", "")
	v.SetDefault("ai.anthropic.model", "claude-3-sonnet-20240229")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("STENCIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs go
// to stderr so command output on stdout stays clean.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
