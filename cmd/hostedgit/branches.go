package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	branchesRemote  bool
	branchesLocal   bool
	branchesPattern string
)

var branchesCmd = &cobra.Command{
	Use:   "branches <owner/name>",
	Short: "List branches",
	Long: `List the branches of a repository as a local clone would show them:
every remote branch appears both as a local branch and as origin/<name>.

Examples:
  hostedgit branches octo/hello
  hostedgit branches octo/hello --local --pattern 'release/*'`,
	Args: cobra.ExactArgs(1),
	RunE: runBranches,
}

func init() {
	branchesCmd.Flags().BoolVar(&branchesRemote, "remote", false, "Only remote branches")
	branchesCmd.Flags().BoolVar(&branchesLocal, "local", false, "Only local branches")
	branchesCmd.Flags().StringVar(&branchesPattern, "pattern", "", "Glob the branch name must match")
	branchesCmd.MarkFlagsMutuallyExclusive("remote", "local")
	rootCmd.AddCommand(branchesCmd)
}

func runBranches(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}

	var filters []hostedgit.BranchFilter
	switch {
	case branchesRemote:
		filters = append(filters, hostedgit.RemoteBranchFilter())
	case branchesLocal:
		filters = append(filters, hostedgit.LocalBranchFilter())
	}
	if branchesPattern != "" {
		filters = append(filters, hostedgit.BranchPatternFilter(branchesPattern))
	}

	branches, err := provider.GetBranches(cmd.Context(), path, filters...)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), branches, func(tw *tabwriter.Writer) {
		for _, b := range branches {
			marker := " "
			if b.Current {
				marker = "*"
			}
			upstream := ""
			if b.Upstream != nil {
				upstream = b.Upstream.Name
				if b.Upstream.Missing {
					upstream += " (gone)"
				}
			}
			fmt.Fprintf(tw, "%s %s\t%s\t%s\n", marker, b.Name, shortSHA(b.SHA), upstream)
		}
	})
}
