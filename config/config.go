// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// credentialFile is the name systemd's LoadCredential= is expected to use for
// the provider API key.
const credentialFile = "openai_key"

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig
	Provider  ProviderConfig
	Usage     UsageConfig
	Metrics   MetricsConfig
	Languages LanguagesConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string
	// APIKey, when set, is required from callers of /translate.
	APIKey string
}

// ProviderConfig holds the chat-completion provider settings.
type ProviderConfig struct {
	// APIKey authenticates against the provider. Sourced from the
	// environment or, preferably, a systemd credential file.
	APIKey string
	// KeyFromCredentials reports whether the key came from
	// CREDENTIALS_DIRECTORY rather than the environment.
	KeyFromCredentials bool
	BaseURL            string
	Model              string
	Temperature        float64
	// Timeout bounds one provider call end to end.
	Timeout time.Duration
}

// UsageConfig holds usage recording settings.
type UsageConfig struct {
	Enabled       bool
	Path          string
	RetentionDays int
}

// MetricsConfig holds prometheus settings.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LanguagesConfig holds the language registry settings.
type LanguagesConfig struct {
	// File optionally replaces the built-in ISO 639-1 table.
	File string
}

// Load reads configuration from the environment. The provider API key is
// required; a systemd credential file takes precedence over the environment
// variable.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("CHATLIBRE_MODEL", "gpt-4o-mini")
	v.SetDefault("CHATLIBRE_TEMPERATURE", 0.2)
	v.SetDefault("CHATLIBRE_TIMEOUT", 60)
	v.SetDefault("CHATLIBRE_METRICS", true)
	v.SetDefault("CHATLIBRE_METRICS_ENDPOINT", "/metrics")
	v.SetDefault("CHATLIBRE_USAGE_ENABLED", false)
	v.SetDefault("CHATLIBRE_USAGE_DB", ".cache/chatlibre.db")
	v.SetDefault("CHATLIBRE_USAGE_RETENTION_DAYS", 90)

	cfg := &Config{
		Server: ServerConfig{
			Port:   v.GetString("PORT"),
			APIKey: v.GetString("CHATLIBRE_API_KEY"),
		},
		Provider: ProviderConfig{
			APIKey:      v.GetString("OPENAI_API_KEY"),
			BaseURL:     v.GetString("OPENAI_BASE_URL"),
			Model:       v.GetString("CHATLIBRE_MODEL"),
			Temperature: v.GetFloat64("CHATLIBRE_TEMPERATURE"),
			Timeout:     time.Duration(v.GetInt("CHATLIBRE_TIMEOUT")) * time.Second,
		},
		Usage: UsageConfig{
			Enabled:       v.GetBool("CHATLIBRE_USAGE_ENABLED"),
			Path:          v.GetString("CHATLIBRE_USAGE_DB"),
			RetentionDays: v.GetInt("CHATLIBRE_USAGE_RETENTION_DAYS"),
		},
		Metrics: MetricsConfig{
			Enabled:  v.GetBool("CHATLIBRE_METRICS"),
			Endpoint: v.GetString("CHATLIBRE_METRICS_ENDPOINT"),
		},
		Languages: LanguagesConfig{
			File: v.GetString("CHATLIBRE_LANGUAGES_FILE"),
		},
	}

	if key, ok := loadCredentialKey(v.GetString("CREDENTIALS_DIRECTORY")); ok {
		cfg.Provider.APIKey = key
		cfg.Provider.KeyFromCredentials = true
	}

	if cfg.Provider.APIKey == "" {
		return nil, fmt.Errorf("no provider API key: set OPENAI_API_KEY or provide the %s credential", credentialFile)
	}
	if cfg.Provider.Timeout <= 0 {
		return nil, fmt.Errorf("CHATLIBRE_TIMEOUT must be positive")
	}

	return cfg, nil
}

// loadCredentialKey reads the provider key from a systemd credentials
// directory. A missing directory or file is not an error; the environment
// variable is used instead.
func loadCredentialKey(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	raw, err := os.ReadFile(filepath.Join(dir, credentialFile))
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", false
	}
	return key, true
}
