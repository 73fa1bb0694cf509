package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolvePath string

var resolveCmd = &cobra.Command{
	Use:   "resolve <owner/name> <ref>",
	Short: "Resolve a reference to a commit sha",
	Long: `Resolve a reference to a commit sha. With --path, resolve the commit that
last changed the file as of the reference.`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolvePath, "path", "", "Resolve as seen by this file")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}

	sha, err := provider.ResolveReference(cmd.Context(), path, args[1], resolvePath)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sha)
	return nil
}
