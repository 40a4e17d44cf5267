// Package config loads listops settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dan-solli/listops/pkg/listops"
)

// Config is the on-disk configuration of the listops command.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Trace    TraceConfig    `yaml:"trace"`
}

// EngineConfig mirrors listops.Config.
type EngineConfig struct {
	ParallelCompletions int     `yaml:"parallel_completions"`
	MaxAttempts         int     `yaml:"max_attempts"`
	MaxTokens           int     `yaml:"max_tokens"`
	Temperature         float64 `yaml:"temperature"`
	MaxHistory          int     `yaml:"max_history"`
}

// ProviderConfig selects and configures the completion backend.
type ProviderConfig struct {
	Name    string `yaml:"name"` // openai, ollama or gemini
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"` // e.g. "60s"
}

// CacheConfig enables the completion cache. An empty Path disables it;
// ":memory:" keeps responses for the lifetime of the process.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig enables Prometheus metrics. When Path is set the metrics are
// written there in text exposition format as the command exits.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TraceConfig sets where operation trace records are written.
type TraceConfig struct {
	Path string `yaml:"path"`
}

// ValidProviders lists the supported completion backends.
var ValidProviders = []string{"openai", "ollama", "gemini"}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			ParallelCompletions: 1,
			MaxAttempts:         2,
			MaxTokens:           1000,
			MaxHistory:          8,
		},
		Provider: ProviderConfig{
			Name:    "openai",
			Model:   "gpt-4o-mini",
			Timeout: "60s",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if name := os.Getenv("LISTOPS_PROVIDER"); name != "" {
		c.Provider.Name = name
	}
	if model := os.Getenv("LISTOPS_MODEL"); model != "" {
		c.Provider.Model = model
	}

	// API keys only apply to their own provider.
	switch c.Provider.Name {
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			c.Provider.APIKey = key
		}
	}

	if v := os.Getenv("LISTOPS_PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LISTOPS_PARALLEL %q: %w", v, err)
		}
		c.Engine.ParallelCompletions = n
	}
	return nil
}

// GetTimeout returns the provider timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Provider.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidProviders, c.Provider.Name) {
		return fmt.Errorf("invalid provider: %q (valid: %v)", c.Provider.Name, ValidProviders)
	}
	if c.Provider.APIKey == "" && c.Provider.Name != "ollama" {
		return fmt.Errorf("%s API key not configured (set OPENAI_API_KEY or GEMINI_API_KEY)", c.Provider.Name)
	}
	if c.Provider.Name == "ollama" && c.Provider.Model == "" {
		return fmt.Errorf("ollama requires a model")
	}
	if c.Provider.Timeout != "" {
		if _, err := time.ParseDuration(c.Provider.Timeout); err != nil {
			return fmt.Errorf("invalid provider timeout %q: %w", c.Provider.Timeout, err)
		}
	}
	if c.Engine.ParallelCompletions < 1 {
		return fmt.Errorf("parallel_completions must be at least 1, got %d", c.Engine.ParallelCompletions)
	}
	return c.EngineConfig().Validate()
}

// EngineConfig returns the in-process engine configuration.
func (c *Config) EngineConfig() listops.Config {
	return listops.Config{
		ParallelCompletions: c.Engine.ParallelCompletions,
		MaxAttempts:         c.Engine.MaxAttempts,
		MaxTokens:           c.Engine.MaxTokens,
		Temperature:         c.Engine.Temperature,
		MaxHistory:          c.Engine.MaxHistory,
	}
}
