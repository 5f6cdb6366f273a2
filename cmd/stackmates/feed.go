package main

import (
	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/models"
	"github.com/stackmates/stackmates/internal/output"
	"github.com/stackmates/stackmates/internal/session"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	Aliases: []string{"refresh"},
	Short:   "Show developers who star the same repositories as you",
	Long: `Compute your developer feed from scratch.

Your most-starred repositories are scanned for other stargazers, and people
who starred at least two of them are listed, most overlap first. If GitHub
cannot be reached a small sample feed is shown instead, with a warning.`,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	sess, _, err := newSession()
	if err != nil {
		return err
	}

	if err := resume(cmd.Context(), sess, true); err != nil {
		return err
	}

	result, ok := sess.LastResult()
	if !ok {
		result = models.DiscoveryResult{Outcome: models.OutcomeEmpty, Err: session.ErrNotAuthenticated}
	}
	if result.Outcome == models.OutcomeFallback {
		logger.WithError(result.Err).Warn("discovery failed, showing fallback feed")
	}

	return formatter.Feed(cmd.OutOrStdout(), output.FeedFromResult(result))
}
