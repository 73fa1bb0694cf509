package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	graphPages int
	graphStats bool
)

var graphCmd = &cobra.Command{
	Use:   "graph <owner/name>",
	Short: "Show the commit graph with branch and tag decorations",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().IntVar(&graphPages, "pages", 1, "Number of pages to fetch")
	graphCmd.Flags().BoolVar(&graphStats, "stats", false, "Fetch change totals for every row")
	rootCmd.AddCommand(graphCmd)
}

// graphRow is the printed form of a hostedgit.GraphRow.
type graphRow struct {
	SHA     string                 `yaml:"sha"`
	Parents []string               `yaml:"parents,omitempty"`
	Type    string                 `yaml:"type"`
	Kind    string                 `yaml:"kind,omitempty"`
	Author  string                 `yaml:"author"`
	Date    time.Time              `yaml:"date"`
	Summary string                 `yaml:"summary"`
	Refs    []string               `yaml:"refs,omitempty"`
	Stats   *hostedgit.CommitStats `yaml:"stats,omitempty"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	result, err := provider.GetCommitsForGraph(ctx, path, limitFlag)
	if err != nil {
		return err
	}
	if result == nil {
		logger.Warn("no history available", "repo", path)
		return nil
	}

	var rows []graphRow
	for page := 1; ; page++ {
		for _, r := range result.Rows {
			row := graphRow{
				SHA:     r.SHA,
				Parents: r.Parents,
				Type:    string(r.Type),
				Kind:    r.Kind,
				Author:  r.Author,
				Date:    r.Date,
				Summary: strings.SplitN(r.Message, "\n", 2)[0],
				Refs:    decorations(r),
			}
			if graphStats {
				if row.Stats, err = result.RowStats(ctx, r.SHA); err != nil {
					return err
				}
			}
			rows = append(rows, row)
		}
		if !result.HasMore || page >= graphPages {
			break
		}
		if result, err = result.More(ctx, limitFlag); err != nil {
			return err
		}
	}

	return render(cmd.OutOrStdout(), rows, func(tw *tabwriter.Writer) {
		for _, r := range rows {
			marker := "*"
			if r.Type == string(hostedgit.GraphRowMerge) {
				marker = "M"
			}
			refs := ""
			if len(r.Refs) > 0 {
				refs = "(" + strings.Join(r.Refs, ", ") + ") "
			}
			fmt.Fprintf(tw, "%s %s\t%s\t%s%s\n", marker, shortSHA(r.SHA), r.Author, refs, r.Summary)
		}
	})
}

func decorations(r hostedgit.GraphRow) []string {
	var refs []string
	for _, h := range r.Heads {
		if h.IsCurrentHead {
			refs = append(refs, "HEAD -> "+h.Name)
		} else {
			refs = append(refs, h.Name)
		}
	}
	for _, h := range r.RemoteHeads {
		refs = append(refs, h.Owner+"/"+h.Name)
	}
	for _, t := range r.Tags {
		refs = append(refs, "tag: "+t.Name)
	}
	return refs
}
