package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var searchCmd = &cobra.Command{
	Use:   "search <owner/name> <query>...",
	Short: "Search commits",
	Long: `Search the commits of a repository.

Operators: commit: (#:) looks a commit up directly, message: (=:) matches the
message, author: (@:) matches the author and @me is the signed-in user.
Bare words are message terms.

Examples:
  hostedgit search octo/hello 'author:@me "fix crash"'
  hostedgit search octo/hello '#:a1b2c3d'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")

	result, err := provider.SearchCommits(cmd.Context(), path, query, hostedgit.SearchOptions{Limit: limitFlag})
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), result.Hits, func(tw *tabwriter.Writer) {
		for _, h := range result.Hits {
			fmt.Fprintf(tw, "%s\t%s\n", h.SHA, h.Date.Format(time.DateOnly))
		}
		if result.HasMore {
			fmt.Fprintln(tw, "...")
		}
	})
}
