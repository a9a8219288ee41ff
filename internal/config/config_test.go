package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdirTemp moves into an empty directory so no grok-pipe.yaml is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// clearGrokEnv makes sure the host environment does not leak into a test.
func clearGrokEnv(t *testing.T) {
	t.Helper()
	for _, env := range grokEnvBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearGrokEnv(t)
	chdirTemp(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Grok.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", cfg.Grok.BaseURL, DefaultBaseURL)
	}
	if cfg.Grok.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", cfg.Grok.APIKey)
	}
	if cfg.Grok.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d, want 4096", cfg.Grok.MaxTokens)
	}
	if cfg.Grok.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want 0.8", cfg.Grok.Temperature)
	}
	if cfg.Grok.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", cfg.Grok.TopP)
	}
	if cfg.Grok.Stream {
		t.Error("Stream = true, want false")
	}
	if cfg.Grok.ModelsTimeout().Seconds() != 10 {
		t.Errorf("ModelsTimeout = %v, want 10s", cfg.Grok.ModelsTimeout())
	}
	if cfg.Grok.ChatTimeout().Seconds() != 30 {
		t.Errorf("ChatTimeout = %v, want 30s", cfg.Grok.ChatTimeout())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearGrokEnv(t)
	chdirTemp(t)

	t.Setenv(EnvAPIKey, "  xai-test-key  ")
	t.Setenv(EnvBaseURL, "http://localhost:9999/v1/")
	t.Setenv("GROK_TEMPERATURE", "0.2")
	t.Setenv("GROK_STREAM", "true")
	t.Setenv("GROK_PIPE_SERVER_PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Grok.APIKey != "xai-test-key" {
		t.Errorf("APIKey = %q, want xai-test-key", cfg.Grok.APIKey)
	}
	if cfg.Grok.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("BaseURL = %s, want trailing slash trimmed", cfg.Grok.BaseURL)
	}
	if cfg.Grok.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", cfg.Grok.Temperature)
	}
	if !cfg.Grok.Stream {
		t.Error("Stream = false, want true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearGrokEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "grok-pipe.yaml")
	content := []byte("grok:\n  max_tokens: 128\n  top_p: 0.5\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Grok.MaxTokens != 128 {
		t.Errorf("MaxTokens = %d, want 128", cfg.Grok.MaxTokens)
	}
	if cfg.Grok.TopP != 0.5 {
		t.Errorf("TopP = %v, want 0.5", cfg.Grok.TopP)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Grok.Temperature != 0.8 {
		t.Errorf("Temperature = %v, want default 0.8", cfg.Grok.Temperature)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearGrokEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Configuration {
		return Configuration{
			Grok: GrokConfig{
				BaseURL:              DefaultBaseURL,
				MaxTokens:            4096,
				Temperature:          0.8,
				TopP:                 0.9,
				ModelsTimeoutSeconds: 10,
				ChatTimeoutSeconds:   30,
			},
			Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Configuration)
		field  string
	}{
		{"valid", func(*Configuration) {}, ""},
		{"relative base url", func(c *Configuration) { c.Grok.BaseURL = "api.x.ai/v1" }, "grok.base_url"},
		{"zero max tokens", func(c *Configuration) { c.Grok.MaxTokens = 0 }, "grok.max_tokens"},
		{"temperature too high", func(c *Configuration) { c.Grok.Temperature = 2.5 }, "grok.temperature"},
		{"top_p too high", func(c *Configuration) { c.Grok.TopP = 1.5 }, "grok.top_p"},
		{"bad port", func(c *Configuration) { c.Server.Port = 70000 }, "server.port"},
		{"bad level", func(c *Configuration) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Configuration) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			if !IsValidationError(err) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if !err.(*ValidationError).HasError(tt.field) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.field)
			}
		})
	}
}
