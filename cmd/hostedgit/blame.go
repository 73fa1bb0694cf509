package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	blameStart int
	blameEnd   int
)

var blameCmd = &cobra.Command{
	Use:   "blame <owner/name> <path>",
	Short: "Show who last changed each line of a file",
	Long: `Show who last changed each line of a file, followed by per-author line counts.
Lines are 1-based.

Examples:
  hostedgit blame octo/hello src/api.go
  hostedgit blame octo/hello src/api.go --start 10 --end 20`,
	Args: cobra.ExactArgs(2),
	RunE: runBlame,
}

func init() {
	blameCmd.Flags().IntVar(&blameStart, "start", 0, "First line")
	blameCmd.Flags().IntVar(&blameEnd, "end", 0, "Last line")
	rootCmd.AddCommand(blameCmd)
}

func runBlame(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}

	uri := hostedgit.DocumentURI{RepoPath: path, Path: args[1]}
	blame, err := provider.GetBlame(cmd.Context(), uri)
	if err != nil {
		return err
	}
	if blame == nil {
		return fmt.Errorf("no blame available for %s", args[1])
	}

	if blameStart > 0 || blameEnd > 0 {
		end := len(blame.Lines)
		if blameEnd > 0 {
			end = blameEnd
		}
		blame = hostedgit.GetBlameRange(blame, max(blameStart, 1)-1, end-1)
	}

	return render(cmd.OutOrStdout(), blame, func(tw *tabwriter.Writer) {
		for _, l := range blame.Lines {
			c := blame.Commits[l.SHA]
			fmt.Fprintf(tw, "%s\t%s\t%d\n", shortSHA(l.SHA), c.Author.Name, l.Line+1)
		}
		fmt.Fprintln(tw)
		for _, a := range blame.Authors {
			fmt.Fprintf(tw, "%s\t%d lines\n", a.Name, a.LineCount)
		}
	})
}
