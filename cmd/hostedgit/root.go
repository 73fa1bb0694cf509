package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/config"
)

var (
	configPath string
	tokenFlag  string
	logLevel   string
	limitFlag  int
	refFlag    string
	outputFlag string
)

var (
	cfg      *config.Config
	logger   = log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel})
	provider *hostedgit.Provider
)

var rootCmd = &cobra.Command{
	Use:   "hostedgit",
	Short: "Query hosted git repositories without a clone",
	Long: `hostedgit answers the questions a local git client would (branches, tags,
history, blame, diffs, search and commit graphs) from the hosting API.

Repositories are given as owner/name or as a full repository path such as
vscode-vfs://github/owner/name.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if provider != nil {
			provider.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/"+config.RelativePath+")")
	flags.StringVar(&tokenFlag, "token", "", "Access token (default: $GITHUB_TOKEN or $GH_TOKEN)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.IntVarP(&limitFlag, "limit", "n", hostedgit.DefaultLimit, "Page size (default: paging.defaultPageSize)")
	flags.StringVar(&refFlag, "ref", "", "Revision to open the repository at")
	flags.StringVarP(&outputFlag, "output", "o", "text", "Output format: text or yaml")
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if err := configureLogger(cfg.Logging); err != nil {
		return err
	}

	// config dump needs no provider.
	if cmd == configCmd || cmd.Parent() == configCmd {
		return nil
	}

	provider, err = hostedgit.New(providerOptions(cfg))
	return err
}

func configureLogger(lc config.LoggingConfig) error {
	level := lc.Level
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	switch lc.Format {
	case "", "text":
		logger.SetFormatter(log.TextFormatter)
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	default:
		return fmt.Errorf("invalid log format %q", lc.Format)
	}
	return nil
}

func providerOptions(c *config.Config) *hostedgit.Options {
	return &hostedgit.Options{
		Auth:              authProvider(),
		Scheme:            c.Repository.Scheme,
		BaseURL:           c.API.BaseURL,
		HTTPClient:        &http.Client{Timeout: c.API.Timeout},
		DefaultPageSize:   c.Paging.DefaultPageSize,
		MaxPageSize:       c.Paging.MaxPageSize,
		DiscoveryInterval: c.Discovery.Interval,
		DiscoveryAttempts: c.Discovery.MaxAttempts,
		Logger:            slog.New(logger),
	}
}

// authProvider prefers --token and falls back to the environment.
func authProvider() hostedgit.AuthProvider {
	composite := hostedgit.NewCompositeAuth()
	if tokenFlag != "" {
		composite.AddProvider(hostedgit.NewTokenAuth(tokenFlag))
	}
	return composite.AddProvider(hostedgit.NewEnvTokenAuth())
}

// repoPath turns an owner/name argument into a repository path, opened at
// --ref when set.
func repoPath(arg string) (string, error) {
	p := arg
	if !strings.Contains(arg, "://") {
		owner, name, ok := strings.Cut(arg, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return "", fmt.Errorf("repository %q is not owner/name", arg)
		}
		p = hostedgit.FormatRepoPath(cfg.Repository.Scheme, owner, name)
	}
	if refFlag != "" {
		sep := "?"
		if strings.Contains(p, "?") {
			sep = "&"
		}
		p += sep + "ref=" + url.QueryEscape(refFlag)
	}
	return p, nil
}
