package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
api:
  baseURL: https://ghe.example.com/api/v3/
  timeout: 10s
paging:
  defaultPageSize: 50
discovery:
  interval: 2s
  maxAttempts: 3
budget:
  openai:
    base: 12000
    step: 2000
    cap: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 50, cfg.Paging.DefaultPageSize)
	assert.Equal(t, 100, cfg.Paging.MaxPageSize, "unset keys keep defaults")
	assert.Equal(t, "vscode-vfs", cfg.Repository.Scheme)
	assert.Equal(t, 2*time.Second, cfg.Discovery.Interval)
	assert.Equal(t, 3, cfg.Discovery.MaxAttempts)
	assert.Equal(t, BudgetPolicy{Base: 12000, Step: 2000, Cap: 3}, cfg.Budget["openai"])
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv("HOSTEDGIT_LOGGING_LEVEL", "debug")
	t.Setenv("HOSTEDGIT_REPOSITORY_SCHEME", "github")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "github", cfg.Repository.Scheme)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "paging:\n  defaultPageSize: 500\n")

	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "paging.defaultPageSize", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.API.BaseURL = "/api" }, "api.baseURL"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -1 }, "api.timeout"},
		{"zero max page", func(c *Config) { c.Paging.MaxPageSize = 0 }, "paging.maxPageSize"},
		{"empty scheme", func(c *Config) { c.Repository.Scheme = "" }, "repository.scheme"},
		{"zero interval", func(c *Config) { c.Discovery.Interval = 0 }, "discovery.interval"},
		{"bad budget", func(c *Config) { c.Budget["x"] = BudgetPolicy{Base: 0} }, "budget.x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestBudgetPolicy(t *testing.T) {
	p := BudgetPolicy{Base: 10000, Step: 2500, Cap: 3}

	tests := []struct {
		retry  int
		want   int
		wantOK bool
	}{
		{0, 10000, true},
		{1, 7500, true},
		{3, 2500, true},
		{4, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		got, ok := p.Budget(tt.retry)
		assert.Equal(t, tt.wantOK, ok, "retry %d", tt.retry)
		assert.Equal(t, tt.want, got, "retry %d", tt.retry)
	}

	_, ok := BudgetPolicy{Base: 100, Step: 100, Cap: 5}.Budget(1)
	assert.False(t, ok, "non-positive budget is exhausted")
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Dump(&buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "api")
	assert.Contains(t, buf.String(), "scheme: vscode-vfs")
}
