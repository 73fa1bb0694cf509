package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/hostedgit"
)

var (
	logFile    string
	logSince   time.Duration
	logAuthors []string
	logPages   int
)

var logCmd = &cobra.Command{
	Use:   "log <owner/name>",
	Short: "Show commit history",
	Long: `Show the commit history of the opened revision, or of one file.

Examples:
  hostedgit log octo/hello -n 20
  hostedgit log octo/hello --ref v1.0.0 --file README.md
  hostedgit log octo/hello --since 72h --author mona@example.com --pages 3`,
	Args: cobra.ExactArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logFile, "file", "", "Only commits touching this path")
	logCmd.Flags().DurationVar(&logSince, "since", 0, "Only commits newer than this")
	logCmd.Flags().StringSliceVar(&logAuthors, "author", nil, "Only commits by these author emails")
	logCmd.Flags().IntVar(&logPages, "pages", 1, "Number of pages to fetch")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, args []string) error {
	path, err := repoPath(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts := hostedgit.LogOptions{Limit: limitFlag, Authors: logAuthors}
	if logSince > 0 {
		opts.Since = time.Now().Add(-logSince)
	}

	var result *hostedgit.LogResult
	if logFile != "" {
		result, err = provider.GetLogForFile(ctx, hostedgit.DocumentURI{RepoPath: path, Path: logFile}, opts)
	} else {
		result, err = provider.GetLog(ctx, path, opts)
	}
	for page := 1; err == nil && result != nil && result.HasMore && page < logPages; page++ {
		result, err = result.More(ctx, limitFlag)
	}
	if err != nil {
		return err
	}
	if result == nil {
		logger.Warn("no history available", "repo", path)
		return nil
	}

	commits := result.Ordered()
	return render(cmd.OutOrStdout(), commits, func(tw *tabwriter.Writer) {
		for _, c := range commits {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ShortSHA(), c.Author.When.Format(time.DateOnly), c.Author.Name, c.Summary)
		}
		if result.HasMore {
			fmt.Fprintln(tw, "...")
		}
	})
}
