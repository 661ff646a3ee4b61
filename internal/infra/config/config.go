package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	LLM     LLMConfig      `yaml:"llm"`
	Memory  MemoryConfig   `yaml:"memory"`
	Manager ManagerConfig  `yaml:"manager"`
	Workers []WorkerConfig `yaml:"workers"`
	Tools   ToolsConfig    `yaml:"tools"`
	Logger  LoggerConfig   `yaml:"logger"`
	Tracer  TracerConfig   `yaml:"tracer"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LLMConfig holds LLM provider settings. Provider order in the list is the
// fixed failover order used by automatic routing.
type LLMConfig struct {
	Providers      []ProviderConfig     `yaml:"providers"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig holds settings for a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "openai" (Groq-compatible) or "gemini"
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Pool        PoolConfig    `yaml:"pool"`
}

// PoolConfig holds HTTP connection pool settings for LLM providers.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// CircuitBreakerConfig holds circuit breaker settings for LLM providers.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// MemoryConfig holds conversation memory settings.
type MemoryConfig struct {
	MaxTokens int    `yaml:"max_tokens"`
	Encoding  string `yaml:"encoding"`
}

// ManagerConfig holds the manager agent's identity and loop settings.
type ManagerConfig struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`
	MaxTurns     int    `yaml:"max_turns"`
}

// WorkerConfig defines a single worker agent. Subscriptions name tool
// registry categories resolved at startup.
type WorkerConfig struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	SystemPrompt  string   `yaml:"system_prompt"`
	Subscriptions []string `yaml:"subscriptions"`
	MaxTurns      int      `yaml:"max_turns,omitempty"`
}

// ToolsConfig holds tool system settings.
type ToolsConfig struct {
	Market MarketConfig `yaml:"market"`
}

// MarketConfig holds market data tool settings.
type MarketConfig struct {
	BaseURL    string        `yaml:"base_url,omitempty"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout", "noop"
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":7860"},
		LLM: LLMConfig{
			Providers: []ProviderConfig{
				{Name: "groq", Type: "openai", Model: "llama-3.1-8b-instant"},
				{Name: "gemini", Type: "gemini", Model: "gemini-2.0-flash"},
			},
			CircuitBreaker: CircuitBreakerConfig{Enabled: true},
		},
		Memory: MemoryConfig{
			MaxTokens: 4096,
			Encoding:  "cl100k_base",
		},
		Manager: ManagerConfig{
			Name:         "Manager",
			SystemPrompt: "You are a manager.",
			MaxTurns:     5,
		},
		Tools: ToolsConfig{
			Market: MarketConfig{
				RateLimit:  30,
				RateWindow: time.Minute,
			},
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A missing
// file is not an error; defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies FINCREW_* environment variable overrides.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINCREW_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FINCREW_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("FINCREW_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("FINCREW_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("FINCREW_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("FINCREW_MEMORY_MAX_TOKENS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.Memory.MaxTokens = n
		}
	}
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *Config) error {
	if len(cfg.LLM.Providers) == 0 {
		return fmt.Errorf("llm: at least one provider must be configured")
	}
	seen := make(map[string]bool, len(cfg.LLM.Providers))
	for _, p := range cfg.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("llm: provider with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("llm: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case "openai", "gemini":
		default:
			return fmt.Errorf("llm: provider %q has unsupported type %q", p.Name, p.Type)
		}
	}
	if cfg.Memory.MaxTokens <= 0 {
		return fmt.Errorf("memory: max_tokens must be positive")
	}
	for _, w := range cfg.Workers {
		if w.Name == "" {
			return fmt.Errorf("workers: worker with empty name")
		}
	}
	return nil
}

// ProviderNames returns the configured provider names in declared order.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		names = append(names, p.Name)
	}
	return names
}
