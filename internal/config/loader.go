// Package config provides configuration management using the Singleton pattern.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "grok-pipe"
	defaultConfigType = "yaml"
	envPrefix         = "GROK_PIPE"

	// DefaultBaseURL is used when GROK_API_BASE_URL is unset.
	DefaultBaseURL = "https://api.x.ai/v1"

	// EnvAPIKey carries the provider credential.
	EnvAPIKey = "GROK_API_KEY"

	// EnvBaseURL overrides the provider base URL.
	EnvBaseURL = "GROK_API_BASE_URL"
)

// grokEnvBindings maps provider keys to their un-prefixed environment variables.
var grokEnvBindings = map[string]string{
	"grok.api_key":                EnvAPIKey,
	"grok.base_url":               EnvBaseURL,
	"grok.max_tokens":             "GROK_MAX_TOKENS",
	"grok.temperature":            "GROK_TEMPERATURE",
	"grok.top_p":                  "GROK_TOP_P",
	"grok.stream":                 "GROK_STREAM",
	"grok.models_timeout_seconds": "GROK_MODELS_TIMEOUT_SECONDS",
	"grok.chat_timeout_seconds":   "GROK_CHAT_TIMEOUT_SECONDS",
}

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. GROK_* variables for the provider block, GROK_PIPE_* for everything else
// 2. grok-pipe.yaml
// 3. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.grok-pipe")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, env := range grokEnvBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, &ConfigError{
				Op:  "bind_env",
				Err: fmt.Errorf("failed to bind %s: %w", env, err),
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		slog.Debug("config file not found, using environment and defaults")
	} else {
		slog.Debug("config file loaded", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	cfg.Grok.APIKey = strings.TrimSpace(cfg.Grok.APIKey)
	cfg.Grok.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.Grok.BaseURL), "/")
	if cfg.Grok.BaseURL == "" {
		cfg.Grok.BaseURL = DefaultBaseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Provider defaults
	v.SetDefault("grok.api_key", "")
	v.SetDefault("grok.base_url", DefaultBaseURL)
	v.SetDefault("grok.max_tokens", 4096)
	v.SetDefault("grok.temperature", 0.8)
	v.SetDefault("grok.top_p", 0.9)
	v.SetDefault("grok.stream", false)
	v.SetDefault("grok.models_timeout_seconds", 10)
	v.SetDefault("grok.chat_timeout_seconds", 30)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 0)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
