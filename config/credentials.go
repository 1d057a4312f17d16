package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service API keys are stored under.
const KeyringService = "agentloop"

// Default environment variables holding provider API keys.
const (
	DefaultOpenAIKeyEnv    = "DEEPINFRA_API_KEY"
	DefaultAnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// ErrMissingAPIKey is returned when no API key could be resolved.
var ErrMissingAPIKey = errors.New("api key not found")

// KeyName returns the environment variable name (and keyring account) used
// for the provider's API key.
func (c *Config) KeyName() string {
	if c.APIKeyEnv != "" {
		return c.APIKeyEnv
	}
	if c.Provider == ProviderAnthropic {
		return DefaultAnthropicKeyEnv
	}
	return DefaultOpenAIKeyEnv
}

// ResolveAPIKey returns the API key from, in order: the explicit APIKey
// setting, the environment variable named by KeyName and the OS keyring.
func ResolveAPIKey(cfg *Config) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}

	name := cfg.KeyName()
	if key := strings.TrimSpace(os.Getenv(name)); key != "" {
		return key, nil
	}

	key, err := keyring.Get(KeyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: set %s or store it with 'agentloop auth set'", ErrMissingAPIKey, name)
		}
		return "", fmt.Errorf("read secret %q: %w", name, err)
	}
	return key, nil
}

// StoreAPIKey saves key in the OS keyring under name.
func StoreAPIKey(name, key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return fmt.Errorf("secret %q cannot be empty", name)
	}
	if err := keyring.Set(KeyringService, name, trimmed); err != nil {
		return fmt.Errorf("store secret %q: %w", name, err)
	}
	return nil
}

// DeleteAPIKey removes the key stored under name. Deleting a missing key
// returns ErrMissingAPIKey.
func DeleteAPIKey(name string) error {
	if err := keyring.Delete(KeyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrMissingAPIKey
		}
		return fmt.Errorf("delete secret %q: %w", name, err)
	}
	return nil
}
