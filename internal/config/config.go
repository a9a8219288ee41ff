// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and an optional grok-pipe.yaml using Viper.
package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Grok holds the provider credentials and generation defaults.
	Grok GrokConfig `json:"grok" mapstructure:"grok"`

	// Server configuration for the optional HTTP bridge.
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// GrokConfig holds the provider settings. It is immutable once loaded.
type GrokConfig struct {
	// APIKey is the bearer credential. Optional; requests may fail without it.
	APIKey string `json:"-" mapstructure:"api_key"`

	// BaseURL is the API root, e.g. https://api.x.ai/v1.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// MaxTokens is the default max-output-tokens.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// Temperature is the default sampling temperature.
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// TopP is the default nucleus sampling value.
	TopP float64 `json:"top_p" mapstructure:"top_p"`

	// Stream is the default streaming flag.
	Stream bool `json:"stream" mapstructure:"stream"`

	// ModelsTimeoutSeconds bounds a model listing call.
	ModelsTimeoutSeconds int `json:"models_timeout_seconds" mapstructure:"models_timeout_seconds"`

	// ChatTimeoutSeconds bounds a batch completion, and the header wait and idle gap of a stream.
	ChatTimeoutSeconds int `json:"chat_timeout_seconds" mapstructure:"chat_timeout_seconds"`
}

// ModelsTimeout returns the model listing deadline.
func (g GrokConfig) ModelsTimeout() time.Duration {
	return time.Duration(g.ModelsTimeoutSeconds) * time.Second
}

// ChatTimeout returns the chat completion deadline.
func (g GrokConfig) ChatTimeout() time.Duration {
	return time.Duration(g.ChatTimeoutSeconds) * time.Second
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// Zero disables it, which long streams need.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// Load reads a fresh Configuration, bypassing the singleton.
func Load(configPath string) (*Configuration, error) {
	return loadConfig(configPath)
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns every problem found.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Grok.BaseURL == "" {
		validationErrors = append(validationErrors, "grok.base_url is required")
	} else if u, err := url.Parse(c.Grok.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		validationErrors = append(validationErrors, fmt.Sprintf("grok.base_url '%s' is not an absolute URL", c.Grok.BaseURL))
	}

	if c.Grok.MaxTokens <= 0 {
		validationErrors = append(validationErrors, "grok.max_tokens must be positive")
	}
	if c.Grok.Temperature < 0 || c.Grok.Temperature > 2 {
		validationErrors = append(validationErrors, "grok.temperature must be between 0 and 2")
	}
	if c.Grok.TopP < 0 || c.Grok.TopP > 1 {
		validationErrors = append(validationErrors, "grok.top_p must be between 0 and 1")
	}
	if c.Grok.ModelsTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "grok.models_timeout_seconds must be positive")
	}
	if c.Grok.ChatTimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "grok.chat_timeout_seconds must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}
