package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	diffStat       bool
	diffPrefix     string
	diffExtensions []string
	diffNoBinary   bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <owner/name> <ref1> [ref2]",
	Short: "Show changes between revisions",
	Long: `Show changes between two revisions. A single revision is compared with its
first parent, and ref1 may be a range such as main..feature.

Examples:
  hostedgit diff octo/hello v1.0.0..v1.1.0 --stat
  hostedgit diff octo/hello main feature-x --prefix src/ --ext .go`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "List changed files instead of the patch")
	diffCmd.Flags().StringVar(&diffPrefix, "prefix", "", "Only paths under this prefix")
	diffCmd.Flags().StringSliceVar(&diffExtensions, "ext", nil, "Only files with these extensions")
	diffCmd.Flags().BoolVar(&diffNoBinary, "no-binary", false, "Skip binary files")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}
	ref1, ref2 := args[1], ""
	if len(args) == 3 {
		ref2 = args[2]
	}

	var filters []hostedgit.ChangeFilter
	if diffPrefix != "" {
		filters = append(filters, hostedgit.PathPrefixFilter(diffPrefix))
	}
	if len(diffExtensions) > 0 {
		filters = append(filters, hostedgit.ExtensionFilter(diffExtensions...))
	}
	if diffNoBinary {
		filters = append(filters, hostedgit.NonBinaryFilter())
	}

	out := cmd.OutOrStdout()
	if diffStat {
		changes, err := provider.GetDiffStatus(cmd.Context(), path, ref1, ref2, filters...)
		if err != nil {
			return err
		}
		return render(out, changes, func(tw *tabwriter.Writer) {
			for _, c := range changes {
				name := c.Path
				if c.OriginalPath != "" {
					name = c.OriginalPath + " => " + c.Path
				}
				fmt.Fprintf(tw, "%s\t%s\t+%d -%d\n", c.Status, name, c.Additions, c.Deletions)
			}
		})
	}

	patch, err := provider.GetDiff(cmd.Context(), path, ref1, ref2, filters...)
	if err != nil {
		return err
	}
	if patch == nil {
		logger.Warn("no diff available", "repo", path, "ref1", ref1, "ref2", ref2)
		return nil
	}
	if outputFlag == "yaml" {
		return render(out, patch, nil)
	}
	_, err = io.WriteString(out, patch.Text)
	return err
}
