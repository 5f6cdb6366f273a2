package main

import (
	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search GitHub users",
	Long: `Search GitHub users with the same syntax as github.com/search.

Examples:
  stackmates search "location:berlin language:go"
  stackmates search torvalds --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of users (1-100)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, _, err := newSession()
	if err != nil {
		return err
	}
	// search works anonymously; a session only raises the rate limit
	if err := resume(ctx, sess, false); err != nil {
		logger.WithError(err).Debug("searching without a session")
	}

	users, err := sess.Search(ctx, args[0], searchLimit)
	if err != nil {
		return err
	}
	return formatter.Users(cmd.OutOrStdout(), users)
}
