package main

import (
	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/config"
	"github.com/stackmates/stackmates/internal/output"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in GitHub account",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sess, _, err := newSession()
	if err != nil {
		return err
	}
	if err := resume(cmd.Context(), sess, false); err != nil {
		logger.WithError(err).Debug("no usable session")
	}

	view := output.SessionView{
		Snapshot: sess.State(),
		Token:    config.MaskToken(sess.Token()),
	}
	return formatter.Session(cmd.OutOrStdout(), view)
}
