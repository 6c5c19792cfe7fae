// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the task loop configuration.
type Config struct {
	Agent     AgentConfig     `toml:"agent"`
	LLM       LLMConfig       `toml:"llm"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Memory    MemoryConfig    `toml:"memory"`
	Queue     QueueConfig     `toml:"queue"`
	Loop      LoopConfig      `toml:"loop"`
	Agents    AgentsConfig    `toml:"agents"`    // Per-agent sampling settings
	Storage   StorageConfig   `toml:"storage"`   // Session journal location
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// AgentConfig identifies this loop instance and what it works on.
type AgentConfig struct {
	Name        string `toml:"name"`         // Instance name (BABY_NAME)
	Objective   string `toml:"objective"`    // OBJECTIVE
	InitialTask string `toml:"initial_task"` // INITIAL_TASK or FIRST_TASK
	Join        bool   `toml:"join"`         // Join an existing shared queue instead of seeding it
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider     string `toml:"provider"` // openai | anthropic | mock
	Tier         string `toml:"tier"`     // low | high
	LowModel     string `toml:"low_model"`
	HighModel    string `toml:"high_model"`
	APIKeyEnv    string `toml:"api_key_env"`
	BaseURL      string `toml:"base_url"`      // Custom API endpoint (OpenRouter, LiteLLM, Ollama, LMStudio)
	MaxRetries   int    `toml:"max_retries"`   // Max retry attempts (default 5)
	RetryBackoff string `toml:"retry_backoff"` // Max backoff duration (default "60s")
}

// EmbeddingConfig contains embedding provider settings.
type EmbeddingConfig struct {
	Provider  string `toml:"provider"` // openai | hash
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	APIKeyEnv string `toml:"api_key_env"`
	BaseURL   string `toml:"base_url"`
	CacheSize int64  `toml:"cache_size"` // Cached embeddings; 0 disables the cache
}

// MemoryConfig selects the vector store.
type MemoryConfig struct {
	Backend string `toml:"backend"` // inmemory | chromem | sqlite
	Table   string `toml:"table"`   // Index name (TABLE_NAME)
	Path    string `toml:"path"`    // chromem directory or sqlite file; empty keeps chromem in memory
}

// QueueConfig selects the task queue backend.
type QueueConfig struct {
	Backend string `toml:"backend"` // memory | file | nats
	Path    string `toml:"path"`    // YAML file for the file backend
	NATSURL string `toml:"nats_url"`
	Bucket  string `toml:"bucket"` // JetStream key-value bucket
	Key     string `toml:"key"`    // Key holding the queue document
}

// LoopConfig tunes the orchestrator.
type LoopConfig struct {
	PollInterval    string `toml:"poll_interval"`     // Idle wait when the queue is empty (default "1s")
	MaxIterations   int    `toml:"max_iterations"`    // 0 runs until interrupted
	ContinueOnError bool   `toml:"continue_on_error"` // Log failed iterations and keep going
	ContextResults  int    `toml:"context_results"`   // Prior results recalled for execution (default 5)
}

// AgentsConfig holds sampling settings for each agent.
type AgentsConfig struct {
	Execution      SamplingConfig `toml:"execution"`
	Creation       SamplingConfig `toml:"creation"`
	Prioritization SamplingConfig `toml:"prioritization"`
}

// SamplingConfig is a temperature and token budget for one agent.
type SamplingConfig struct {
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path     string `toml:"path"`     // Base directory for session journals
	Sessions bool   `toml:"sessions"` // Write a session journal for each run
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool              `toml:"enabled"`
	Endpoint string            `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string            `toml:"protocol"` // grpc (default) or http
	Insecure bool              `toml:"insecure"` // Disable TLS (default false)
	Headers  map[string]string `toml:"headers"`  // Auth headers (e.g., DD-API-KEY, x-honeycomb-team)
}

// LoggingConfig controls diagnostic logs.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // Optional extra log file
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Agent: AgentConfig{
			Name: "BabyAGI",
		},
		LLM: LLMConfig{
			Provider:     "openai",
			Tier:         "low",
			MaxRetries:   5,
			RetryBackoff: "60s",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-ada-002",
			Dimension: 1536,
			CacheSize: 1000,
		},
		Memory: MemoryConfig{
			Backend: "chromem",
			Table:   "babyagi",
		},
		Queue: QueueConfig{
			Backend: "memory",
			Path:    "tasks.yaml",
			NATSURL: "nats://127.0.0.1:4222",
			Bucket:  "taskloop",
			Key:     "queue",
		},
		Loop: LoopConfig{
			PollInterval:   "1s",
			ContextResults: 5,
		},
		Agents: AgentsConfig{
			Execution:      SamplingConfig{Temperature: 0.7, MaxTokens: 2000},
			Creation:       SamplingConfig{Temperature: 0.5, MaxTokens: 100},
			Prioritization: SamplingConfig{Temperature: 0.5, MaxTokens: 100},
		},
		Storage: StorageConfig{
			Path:     "~/.local/taskloop",
			Sessions: true,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads taskloop.toml from the current directory, falling back to
// defaults when the file does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	path := filepath.Join(cwd, "taskloop.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// ApplyEnv overlays the environment variables the loop has always honored.
// Non-empty variables win over file values.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OBJECTIVE"); v != "" {
		c.Agent.Objective = v
	}
	if v := os.Getenv("INITIAL_TASK"); v != "" {
		c.Agent.InitialTask = v
	} else if v := os.Getenv("FIRST_TASK"); v != "" {
		c.Agent.InitialTask = v
	}
	if v := os.Getenv("BABY_NAME"); v != "" {
		c.Agent.Name = v
	}
	if v := os.Getenv("TABLE_NAME"); v != "" {
		c.Memory.Table = v
	}
}

// ValidationError reports configuration that cannot start a loop.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Validate checks that the configuration is complete enough to start.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Agent.Objective) == "" {
		return &ValidationError{"agent.objective", "no objective given (set OBJECTIVE or pass it as an argument)"}
	}
	if strings.TrimSpace(c.Agent.Name) == "" {
		return &ValidationError{"agent.name", "instance name is empty"}
	}
	if !c.Agent.Join && strings.TrimSpace(c.Agent.InitialTask) == "" {
		return &ValidationError{"agent.initial_task", "no initial task given (set INITIAL_TASK or use --task)"}
	}
	if strings.TrimSpace(c.Memory.Table) == "" {
		return &ValidationError{"memory.table", "index name is empty"}
	}
	if err := oneOf("llm.provider", c.LLM.Provider, "openai", "anthropic", "mock"); err != nil {
		return err
	}
	if err := oneOf("llm.tier", c.LLM.Tier, "low", "high"); err != nil {
		return err
	}
	if err := oneOf("embedding.provider", c.Embedding.Provider, "openai", "hash"); err != nil {
		return err
	}
	if err := oneOf("memory.backend", c.Memory.Backend, "inmemory", "chromem", "sqlite"); err != nil {
		return err
	}
	if err := oneOf("queue.backend", c.Queue.Backend, "memory", "file", "nats"); err != nil {
		return err
	}
	if c.Embedding.Dimension <= 0 {
		return &ValidationError{"embedding.dimension", "must be positive"}
	}
	if c.Memory.Backend == "sqlite" && c.Memory.Path == "" {
		return &ValidationError{"memory.path", "sqlite backend needs a database path"}
	}
	if c.Queue.Backend == "file" && c.Queue.Path == "" {
		return &ValidationError{"queue.path", "file backend needs a path"}
	}
	if c.Agent.Join && c.Queue.Backend == "memory" {
		return &ValidationError{"agent.join", "joining needs a shared queue backend (file or nats)"}
	}
	if c.Agent.Join && c.Memory.Backend != "sqlite" {
		return &ValidationError{"agent.join", "joining needs memory shared between instances (sqlite)"}
	}
	if _, err := c.PollInterval(); err != nil {
		return &ValidationError{"loop.poll_interval", err.Error()}
	}
	if c.LLM.MaxRetries < 0 {
		return &ValidationError{"llm.max_retries", "must not be negative"}
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{field, fmt.Sprintf("%q is not one of %s", value, strings.Join(allowed, ", "))}
}

// PollInterval parses the idle wait; empty means one second.
func (c *Config) PollInterval() (time.Duration, error) {
	if c.Loop.PollInterval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Loop.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// GetAPIKey returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	return lookupKey(c.LLM.APIKeyEnv, c.LLM.Provider)
}

// GetEmbeddingAPIKey returns the key for the embedding provider.
func (c *Config) GetEmbeddingAPIKey() string {
	return lookupKey(c.Embedding.APIKeyEnv, c.Embedding.Provider)
}

func lookupKey(envVar, provider string) string {
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
