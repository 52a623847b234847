package config

import (
	"os"
	"path/filepath"
	"testing"

	"geauxclean/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("LocalMode", func(t *testing.T) {
		path := writeConfig(t, `
app:
  name: GeauxCleanup
  timezone: America/Chicago
backend:
  mode: local
  local_path: data/test.db
services:
  - id: residential-basic
    name: Basic Residential
    base_price: 120
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "GeauxCleanup", cfg.App.Name)
		assert.Equal(t, "local", cfg.Backend.Mode)
		assert.Equal(t, "data/test.db", cfg.Backend.LocalPath)
		require.Len(t, cfg.Services, 1)
		assert.Equal(t, 120.0, cfg.Services[0].BasePrice)
	})

	t.Run("EnvExpansion", func(t *testing.T) {
		t.Setenv("TEST_BACKEND_URL", "https://project.example.co")
		t.Setenv("TEST_ANON_KEY", "key-from-env")

		path := writeConfig(t, `
backend:
  mode: rest
  base_url: ${TEST_BACKEND_URL}
  anon_key: ${TEST_ANON_KEY}
redis:
  enabled: true
  address: localhost:6379
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "https://project.example.co", cfg.Backend.BaseURL)
		assert.Equal(t, "key-from-env", cfg.Backend.AnonKey)
	})

	t.Run("Defaults", func(t *testing.T) {
		path := writeConfig(t, `
backend:
  mode: local
redis:
  enabled: false
monitoring:
  prometheus_enabled: true
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "data/geauxclean.db", cfg.Backend.LocalPath)
		assert.Equal(t, 9090, cfg.Monitoring.PrometheusPort)
		assert.Equal(t, 10, cfg.Redis.PoolSize)
		assert.Equal(t, models.MinPasswordLength, cfg.Wizard.MinPasswordLength)
		assert.Equal(t, 5, cfg.Wizard.ProvisionMaxAttempts)
		assert.InDelta(t, 5.0/60.0, cfg.Wizard.SignInRateLimit, 1e-9)
		assert.Equal(t, models.RateLimitAttempts, cfg.Wizard.SignInBurst)
		assert.Equal(t, models.NotifyQueueSize, cfg.Notify.QueueSize)
		assert.Equal(t, 3, cfg.Notify.MaxRetries)
		assert.Equal(t, "exports", cfg.Exports.Path)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := writeConfig(t, "backend: [not a mapping")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "RestModeNeedsBaseURL",
			mutate:  func(c *Config) { c.Backend = BackendConfig{Mode: "rest", AnonKey: "k"} },
			wantErr: "base_url",
		},
		{
			name:    "RestModeNeedsAnonKey",
			mutate:  func(c *Config) { c.Backend = BackendConfig{Mode: "rest", BaseURL: "https://x"} },
			wantErr: "anon_key",
		},
		{
			name: "RestModePlaceholderKeyRejected",
			mutate: func(c *Config) {
				c.Backend = BackendConfig{Mode: "rest", BaseURL: "https://x", AnonKey: "YOUR_ANON_KEY_HERE"}
			},
			wantErr: "anon_key",
		},
		{
			name: "RestModeNeedsRedis",
			mutate: func(c *Config) {
				c.Backend = BackendConfig{Mode: "rest", BaseURL: "https://x", AnonKey: "k"}
				c.Redis.Enabled = false
			},
			wantErr: "redis",
		},
		{
			name:    "LocalModeNeedsPath",
			mutate:  func(c *Config) { c.Backend = BackendConfig{Mode: "local"} },
			wantErr: "local_path",
		},
		{
			name:    "UnknownMode",
			mutate:  func(c *Config) { c.Backend.Mode = "graphql" },
			wantErr: "unknown backend mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Backend: BackendConfig{Mode: "local", LocalPath: "data/x.db"}}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("ValidLocal", func(t *testing.T) {
		cfg := &Config{Backend: BackendConfig{Mode: "local", LocalPath: "data/x.db"}}
		assert.NoError(t, cfg.Validate())
	})
}

func TestValidateServices(t *testing.T) {
	t.Run("EmptyID", func(t *testing.T) {
		err := ValidateServices([]models.Service{{Name: "Nameless"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty ID")
	})

	t.Run("DuplicateID", func(t *testing.T) {
		err := ValidateServices([]models.Service{
			{ID: "residential-basic", Name: "A"},
			{ID: "residential-basic", Name: "B"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate service ID")
	})

	t.Run("OK", func(t *testing.T) {
		err := ValidateServices([]models.Service{
			{ID: "residential-basic"},
			{ID: "office-basic"},
		})
		assert.NoError(t, err)
	})
}
