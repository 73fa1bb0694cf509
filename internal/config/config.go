// Package config loads hostedgit settings from a YAML file and HOSTEDGIT_
// environment variables.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RelativePath is where the config file lives under the XDG config dirs.
const RelativePath = "hostedgit/config.yaml"

// EnvPrefix prefixes environment overrides, e.g. HOSTEDGIT_API_BASEURL.
const EnvPrefix = "HOSTEDGIT"

// Config is the full configuration.
type Config struct {
	API        APIConfig               `mapstructure:"api" yaml:"api"`
	Paging     PagingConfig            `mapstructure:"paging" yaml:"paging"`
	Repository RepositoryConfig        `mapstructure:"repository" yaml:"repository"`
	Discovery  DiscoveryConfig         `mapstructure:"discovery" yaml:"discovery"`
	Logging    LoggingConfig           `mapstructure:"logging" yaml:"logging"`
	Budget     map[string]BudgetPolicy `mapstructure:"budget" yaml:"budget"`
}

// APIConfig configures the remote API client.
type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL" yaml:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// PagingConfig bounds page sizes.
type PagingConfig struct {
	DefaultPageSize int `mapstructure:"defaultPageSize" yaml:"defaultPageSize"`
	MaxPageSize     int `mapstructure:"maxPageSize" yaml:"maxPageSize"`
}

// RepositoryConfig configures repository path recognition.
type RepositoryConfig struct {
	Scheme string `mapstructure:"scheme" yaml:"scheme"`
}

// DiscoveryConfig configures bridge polling.
type DiscoveryConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAttempts int           `mapstructure:"maxAttempts" yaml:"maxAttempts"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BudgetPolicy shrinks a character budget on each retry after a "prompt too
// long" rejection: Base - Step*retry, for at most Cap retries.
type BudgetPolicy struct {
	Base int `mapstructure:"base" yaml:"base"`
	Step int `mapstructure:"step" yaml:"step"`
	Cap  int `mapstructure:"cap" yaml:"cap"`
}

// Budget returns the budget for the given retry count (0 for the first
// attempt). It returns false once retries are exhausted or the budget would
// not be positive.
func (b BudgetPolicy) Budget(retry int) (int, bool) {
	if retry < 0 || retry > b.Cap {
		return 0, false
	}
	n := b.Base - b.Step*retry
	if n <= 0 {
		return 0, false
	}
	return n, true
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.github.com/",
			Timeout: 30 * time.Second,
		},
		Paging: PagingConfig{
			DefaultPageSize: 100,
			MaxPageSize:     100,
		},
		Repository: RepositoryConfig{
			Scheme: "vscode-vfs",
		},
		Discovery: DiscoveryConfig{
			Interval:    500 * time.Millisecond,
			MaxAttempts: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Budget: map[string]BudgetPolicy{},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("api.baseURL", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("paging.defaultPageSize", d.Paging.DefaultPageSize)
	v.SetDefault("paging.maxPageSize", d.Paging.MaxPageSize)
	v.SetDefault("repository.scheme", d.Repository.Scheme)
	v.SetDefault("discovery.interval", d.Discovery.Interval)
	v.SetDefault("discovery.maxAttempts", d.Discovery.MaxAttempts)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Path returns the first existing config file in the XDG config
// directories, or "" if there is none.
func Path() string {
	p, err := xdg.SearchConfigFile(RelativePath)
	if err != nil {
		return ""
	}
	return p
}

// Load reads configuration from path, or from the XDG location when path is
// empty, then applies environment overrides. A missing XDG file is not an
// error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = Path()
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &Error{Field: "api.baseURL", Message: "must be an absolute URL"}
		}
	}
	if c.API.Timeout < 0 {
		return &Error{Field: "api.timeout", Message: "cannot be negative"}
	}
	if c.Paging.MaxPageSize <= 0 {
		return &Error{Field: "paging.maxPageSize", Message: "must be positive"}
	}
	if c.Paging.DefaultPageSize <= 0 || c.Paging.DefaultPageSize > c.Paging.MaxPageSize {
		return &Error{Field: "paging.defaultPageSize", Message: "must be between 1 and paging.maxPageSize"}
	}
	if c.Repository.Scheme == "" {
		return &Error{Field: "repository.scheme", Message: "is required"}
	}
	if c.Discovery.Interval <= 0 {
		return &Error{Field: "discovery.interval", Message: "must be positive"}
	}
	for name, b := range c.Budget {
		if b.Base <= 0 || b.Step < 0 || b.Cap < 0 {
			return &Error{Field: "budget." + name, Message: "base must be positive, step and cap non-negative"}
		}
	}
	return nil
}

// Dump writes c as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Error is a validation failure for one field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
