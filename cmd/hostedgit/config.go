package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cfg.Dump(cmd.OutOrStdout())
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		p := configPath
		if p == "" {
			p = config.Path()
		}
		if p == "" {
			p = "(none, defaults and " + config.EnvPrefix + "_* variables only)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
	},
}

func init() {
	configCmd.AddCommand(configDumpCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
