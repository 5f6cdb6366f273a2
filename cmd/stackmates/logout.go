package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and remove the stored token",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	sess, _, err := newSession()
	if err != nil {
		return err
	}

	if err := sess.Logout(); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Successfully signed out")
	if cfg.GitHub.Token != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "⚠️  GITHUB_TOKEN is still set in your environment")
	}
	return nil
}
