// Package config holds the explicit configuration value of an agentloop
// process. A Config is assembled from defaults, an optional YAML file and
// AGENTLOOP_* environment variables, then passed into constructors. There is
// no package level mutable state.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/agentloop/logging"
	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults.
const (
	DefaultBaseURL       = "https://litellm-api.predev.praveg.ai/v1"
	DefaultModel         = "deepinfra/Qwen/Qwen2.5-72B-Instruct"
	DefaultMaxIterations = 10
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 4096
	DefaultToolTimeout   = 20 * time.Second
	DefaultModelTimeout  = 60 * time.Second
	DefaultMaxRetries    = 2
)

// envPrefix prefixes every environment override.
const envPrefix = "AGENTLOOP_"

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text, pretty
}

// Config is the complete runtime configuration.
type Config struct {
	Provider     string  `yaml:"provider"`
	BaseURL      string  `yaml:"base_url"`
	Model        string  `yaml:"model"`
	APIKey       string  `yaml:"api_key"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int64   `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`

	MaxIterations int           `yaml:"max_iterations"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
	ModelTimeout  time.Duration `yaml:"model_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	Stream        bool          `yaml:"stream"`

	// TranscriptDB is the SQLite file finished runs are recorded to. Empty
	// disables persistent transcripts.
	TranscriptDB string `yaml:"transcript_db"`

	Log LogConfig `yaml:"log"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Provider:      ProviderOpenAI,
		BaseURL:       DefaultBaseURL,
		Model:         DefaultModel,
		Temperature:   DefaultTemperature,
		MaxTokens:     DefaultMaxTokens,
		MaxIterations: DefaultMaxIterations,
		ToolTimeout:   DefaultToolTimeout,
		ModelTimeout:  DefaultModelTimeout,
		MaxRetries:    DefaultMaxRetries,
		Log:           LogConfig{Level: "info", Format: logging.FormatPretty},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set and otherwise returns Default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// FromEnv applies AGENTLOOP_* environment overrides to cfg in place.
func FromEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	parse := func(key string, set func(string) error) {
		v, ok := lookup(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		if err := set(strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		}
	}

	str("PROVIDER", &cfg.Provider)
	str("BASE_URL", &cfg.BaseURL)
	str("MODEL", &cfg.Model)
	str("API_KEY_ENV", &cfg.APIKeyEnv)
	str("SYSTEM_PROMPT", &cfg.SystemPrompt)
	str("TRANSCRIPT_DB", &cfg.TranscriptDB)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	parse("MAX_ITERATIONS", assign(&cfg.MaxIterations, strconv.Atoi))
	parse("TEMPERATURE", assign(&cfg.Temperature, func(v string) (float64, error) {
		return strconv.ParseFloat(v, 64)
	}))
	parse("MAX_TOKENS", assign(&cfg.MaxTokens, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	}))
	parse("MAX_RETRIES", assign(&cfg.MaxRetries, strconv.Atoi))
	parse("TOOL_TIMEOUT", assign(&cfg.ToolTimeout, time.ParseDuration))
	parse("MODEL_TIMEOUT", assign(&cfg.ModelTimeout, time.ParseDuration))
	parse("STREAM", assign(&cfg.Stream, strconv.ParseBool))

	return errors.Join(errs...)
}

// assign stores a parsed value in dst only when parsing succeeds.
func assign[T any](dst *T, parse func(string) (T, error)) func(string) error {
	return func(v string) error {
		parsed, err := parse(v)
		if err != nil {
			return err
		}
		*dst = parsed
		return nil
	}
}

// Validate normalizes cfg and reports invalid settings. Zero values of
// optional settings are replaced by their defaults; MaxIterations is kept
// as is because zero is a meaningful cap.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}

	var errs []error
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	if c.Model == "" && c.Provider == ProviderOpenAI {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = DefaultToolTimeout
	}
	if c.ModelTimeout == 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = logging.FormatPretty
	}

	if c.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations))
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative, got %d", c.MaxTokens))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.ToolTimeout < 0 || c.ModelTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case logging.FormatJSON, logging.FormatText, logging.FormatPretty:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoggerConfig converts the log settings for logging.NewLogger. Invalid
// levels fall back to info; call Validate first to reject them.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig()
	if lvl, err := logging.ParseLevel(c.Log.Level); err == nil {
		lc.Level = lvl
	}
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	return lc
}
