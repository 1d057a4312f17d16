package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/agentloop/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentloop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// ---- Load Tests ----

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, int64(2048), cfg.MaxTokens)
	assert.Equal(t, 20*time.Second, cfg.ToolTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
provider: anthropic
model: claude-sonnet-4-5
max_iterations: 4
tool_timeout: 5s
stream: true
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.True(t, cfg.Stream)
	// untouched keys keep defaults
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, DefaultModelTimeout, cfg.ModelTimeout)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LogLevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "max_iterations: [1"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// ---- Env Tests ----

func TestFromEnv(t *testing.T) {
	t.Setenv("AGENTLOOP_PROVIDER", "anthropic")
	t.Setenv("AGENTLOOP_MAX_ITERATIONS", "3")
	t.Setenv("AGENTLOOP_TEMPERATURE", "0.2")
	t.Setenv("AGENTLOOP_TOOL_TIMEOUT", "1500ms")
	t.Setenv("AGENTLOOP_STREAM", "true")
	t.Setenv("AGENTLOOP_LOG_FORMAT", "text")

	cfg := Default()
	require.NoError(t, FromEnv(cfg))
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 1500*time.Millisecond, cfg.ToolTimeout)
	assert.True(t, cfg.Stream)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		"AGENTLOOP_MAX_ITERATIONS": "ten",
		"AGENTLOOP_TOOL_TIMEOUT":   "soon",
		"AGENTLOOP_TEMPERATURE":    "warm",
		"AGENTLOOP_STREAM":         "maybe",
		"AGENTLOOP_MAX_TOKENS":     "2048",
	}
	cfg := Default()
	err := applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENTLOOP_MAX_ITERATIONS")
	assert.Contains(t, err.Error(), "AGENTLOOP_TOOL_TIMEOUT")
	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.False(t, cfg.Stream)
	assert.Equal(t, int64(2048), cfg.MaxTokens)
}

// ---- Validate Tests ----

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "zero iterations allowed", mutate: func(c *Config) { c.MaxIterations = 0 }},
		{name: "provider normalized", mutate: func(c *Config) { c.Provider = " OpenAI " }},
		{name: "unknown provider", mutate: func(c *Config) { c.Provider = "ollama" }, wantErr: "unknown provider"},
		{name: "negative iterations", mutate: func(c *Config) { c.MaxIterations = -1 }, wantErr: "max_iterations"},
		{name: "temperature", mutate: func(c *Config) { c.Temperature = 3 }, wantErr: "temperature"},
		{name: "retries", mutate: func(c *Config) { c.MaxRetries = -2 }, wantErr: "max_retries"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "unknown log level"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "unknown log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_FillsDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultToolTimeout, cfg.ToolTimeout)
	assert.Equal(t, int64(DefaultMaxTokens), cfg.MaxTokens)
	assert.Equal(t, 0, cfg.MaxIterations)
}

// ---- Credential Tests ----

func TestResolveAPIKey(t *testing.T) {
	keyring.MockInit()
	t.Setenv(DefaultOpenAIKeyEnv, "")

	cfg := Default()
	_, err := ResolveAPIKey(cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	require.NoError(t, StoreAPIKey(DefaultOpenAIKeyEnv, "  from-keyring "))
	key, err := ResolveAPIKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", key)

	t.Setenv(DefaultOpenAIKeyEnv, "from-env")
	key, err = ResolveAPIKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	cfg.APIKey = "explicit"
	key, err = ResolveAPIKey(cfg)
	require.NoError(t, err)
	assert.Equal(t, "explicit", key)

	require.NoError(t, DeleteAPIKey(DefaultOpenAIKeyEnv))
	assert.ErrorIs(t, DeleteAPIKey(DefaultOpenAIKeyEnv), ErrMissingAPIKey)
}

func TestKeyName(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultOpenAIKeyEnv, cfg.KeyName())

	cfg.Provider = ProviderAnthropic
	assert.Equal(t, DefaultAnthropicKeyEnv, cfg.KeyName())

	cfg.APIKeyEnv = "MY_KEY"
	assert.Equal(t, "MY_KEY", cfg.KeyName())
}

func TestStoreAPIKey_RejectsEmpty(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, StoreAPIKey("X", "   "))
}
