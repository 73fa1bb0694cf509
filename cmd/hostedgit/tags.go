package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	tagsPattern string
	tagsExclude string
)

var tagsCmd = &cobra.Command{
	Use:   "tags <owner/name>",
	Short: "List tags, newest version first",
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().StringVar(&tagsPattern, "pattern", "", "Glob the tag name must match")
	tagsCmd.Flags().StringVar(&tagsExclude, "exclude", "", "Glob of tag names to skip")
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}

	var filters []hostedgit.TagFilter
	if tagsPattern != "" {
		filters = append(filters, hostedgit.TagPatternFilter(tagsPattern))
	}
	if tagsExclude != "" {
		filters = append(filters, hostedgit.TagExcludeFilter(tagsExclude))
	}

	tags, err := provider.GetTags(cmd.Context(), path, filters...)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), tags, func(tw *tabwriter.Writer) {
		for _, t := range tags {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, shortSHA(t.SHA), t.Message)
		}
	})
}
