package main

import (
	"fmt"

	"github.com/spf13/cobra"
	apperrors "github.com/stackmates/stackmates/internal/errors"
)

var profileCmd = &cobra.Command{
	Use:   "profile <handle>",
	Short: "Show a developer's profile and the stars you share",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, _, err := newSession()
	if err != nil {
		return err
	}
	if err := resume(ctx, sess, false); err != nil {
		return err
	}

	profile, err := sess.Profile(ctx, args[0])
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fmt.Errorf("user %s not found", args[0])
		}
		return err
	}
	return formatter.Profile(cmd.OutOrStdout(), profile)
}
