// Package config loads engine configuration from the environment, with an
// optional YAML overlay file, and sets up logging.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider identifiers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Proposer kinds.
const (
	ProposerHeuristic = "heuristic"
	ProposerLLM       = "llm"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection. Empty URL means run with in-memory backends.
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"`

	// Proposer selection.
	ProposerKind    string        `yaml:"proposer"`
	ProposerTimeout time.Duration `yaml:"proposer_timeout"`

	// LLM proposer settings.
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`

	// Execution guard.
	ExecuteTimeout time.Duration `yaml:"execute_timeout"`

	// Logging.
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from environment variables, applying the YAML
// overlay named by MAPGATE_CONFIG first so explicit env vars win.
func Load() Config {
	cfg := Config{
		SurrealDBURL:       os.Getenv("MAPGATE_SURREALDB_URL"),
		SurrealDBNamespace: getEnv("MAPGATE_SURREALDB_NAMESPACE", "mapgate"),
		SurrealDBDatabase:  getEnv("MAPGATE_SURREALDB_DATABASE", "workflow"),
		SurrealDBUser:      getEnv("MAPGATE_SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("MAPGATE_SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("MAPGATE_SURREALDB_AUTH_LEVEL", "root"),

		ProposerKind:    getEnv("MAPGATE_PROPOSER", ProposerHeuristic),
		ProposerTimeout: getEnvDuration("MAPGATE_PROPOSER_TIMEOUT", 30*time.Second),

		LLMProvider:     getEnv("MAPGATE_LLM_PROVIDER", ProviderOllama),
		LLMModel:        getEnv("MAPGATE_LLM_MODEL", "llama3.1"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		ExecuteTimeout: getEnvDuration("MAPGATE_EXECUTE_TIMEOUT", 2*time.Minute),

		LogFile:  getEnv("MAPGATE_LOG_FILE", "/tmp/mapgate.log"),
		LogLevel: parseLogLevel(getEnv("MAPGATE_LOG_LEVEL", "INFO")),
	}

	if path := os.Getenv("MAPGATE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("failed to apply config file, continuing with env values",
				"file", path, "error", err)
		}
	}

	return cfg
}

// applyFile overlays values from a YAML file onto fields the environment
// left at their defaults. Environment variables always win.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if c.SurrealDBURL == "" && overlay.SurrealDBURL != "" {
		c.SurrealDBURL = overlay.SurrealDBURL
	}
	if os.Getenv("MAPGATE_PROPOSER") == "" && overlay.ProposerKind != "" {
		c.ProposerKind = overlay.ProposerKind
	}
	if os.Getenv("MAPGATE_LLM_PROVIDER") == "" && overlay.LLMProvider != "" {
		c.LLMProvider = overlay.LLMProvider
	}
	if os.Getenv("MAPGATE_LLM_MODEL") == "" && overlay.LLMModel != "" {
		c.LLMModel = overlay.LLMModel
	}
	if os.Getenv("MAPGATE_LOG_FILE") == "" && overlay.LogFile != "" {
		c.LogFile = overlay.LogFile
	}
	if overlay.ProposerTimeout > 0 && os.Getenv("MAPGATE_PROPOSER_TIMEOUT") == "" {
		c.ProposerTimeout = overlay.ProposerTimeout
	}
	if overlay.ExecuteTimeout > 0 && os.Getenv("MAPGATE_EXECUTE_TIMEOUT") == "" {
		c.ExecuteTimeout = overlay.ExecuteTimeout
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
