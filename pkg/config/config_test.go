package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LISTOPS_PROVIDER", "LISTOPS_MODEL", "OPENAI_API_KEY", "GEMINI_API_KEY", "LISTOPS_PARALLEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "listops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  parallel_completions: 4
  max_attempts: 3
provider:
  name: ollama
  model: mistral
  base_url: http://localhost:11434
  timeout: 5m
cache:
  path: /tmp/listops.db
metrics:
  enabled: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Engine.ParallelCompletions)
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, 1000, cfg.Engine.MaxTokens, "unset fields keep their defaults")
	assert.Equal(t, "ollama", cfg.Provider.Name)
	assert.Equal(t, "mistral", cfg.Provider.Model)
	assert.Equal(t, 5*time.Minute, cfg.GetTimeout())
	assert.Equal(t, "/tmp/listops.db", cfg.Cache.Path)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [1, 2"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("provider and model", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LISTOPS_PROVIDER", "gemini")
		t.Setenv("LISTOPS_MODEL", "gemini-2.5-pro")
		t.Setenv("GEMINI_API_KEY", "g-key")
		t.Setenv("OPENAI_API_KEY", "o-key")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.Provider.Name)
		assert.Equal(t, "gemini-2.5-pro", cfg.Provider.Model)
		assert.Equal(t, "g-key", cfg.Provider.APIKey)
	})

	t.Run("openai key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "o-key")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "o-key", cfg.Provider.APIKey)
	})

	t.Run("parallel", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LISTOPS_PARALLEL", "6")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Engine.ParallelCompletions)
		assert.Equal(t, 6, cfg.EngineConfig().ParallelCompletions)
	})

	t.Run("bad parallel", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LISTOPS_PARALLEL", "many")

		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Provider.APIKey = "k"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"unknown provider": func(c *Config) { c.Provider.Name = "acme" },
		"missing key":      func(c *Config) { c.Provider.APIKey = "" },
		"bad timeout":      func(c *Config) { c.Provider.Timeout = "soon" },
		"zero parallel":    func(c *Config) { c.Engine.ParallelCompletions = 0 },
		"too many retries": func(c *Config) { c.Engine.MaxAttempts = 9 },
		"ollama no model":  func(c *Config) { c.Provider.Name = "ollama"; c.Provider.Model = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "listops.yaml")

	cfg := DefaultConfig()
	cfg.Trace.Path = "/var/log/listops.jsonl"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
