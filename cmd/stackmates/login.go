package main

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/config"
	apperrors "github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/output"
)

var (
	loginToken string
	loginOpen  bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a GitHub personal access token",
	Long: `Log in with a GitHub personal access token.

The token is taken from --token, then GITHUB_TOKEN or GH_TOKEN, and otherwise
read from a hidden prompt. A valid token is stored in the OS keychain (or the
session file on headless hosts) and your feed is computed right away.

A classic token with no scopes is enough; stackmates only reads public data.`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "GitHub personal access token")
	loginCmd.Flags().BoolVar(&loginOpen, "open", false, "open the GitHub token settings page first")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if loginOpen {
		if err := browser.OpenURL(config.TokenSettingsURL); err != nil {
			logger.WithError(err).Warn("failed to open browser")
			fmt.Fprintf(os.Stderr, "Create a token at %s\n", config.TokenSettingsURL)
		}
	}

	token := loginToken
	if token == "" {
		token = cfg.GitHub.Token
	}
	if token == "" {
		prompter := config.NewPrompter()
		if !prompter.IsInteractive() && !loginOpen {
			fmt.Fprintf(os.Stderr, "Create a token at %s\n", config.TokenSettingsURL)
		}
		var err error
		token, err = prompter.PromptToken()
		if err != nil {
			return err
		}
	}

	sess, _, err := newSession()
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "🔐 Checking token and scanning your stars...")
	if err := sess.Login(ctx, token); err != nil {
		if apperrors.IsAuth(err) {
			return fmt.Errorf("invalid token. Please check your token and try again")
		}
		return err
	}

	state := sess.State()
	fmt.Fprintf(os.Stderr, "✅ Logged in as %s\n\n", state.User.Login)

	result, _ := sess.LastResult()
	return formatter.Feed(cmd.OutOrStdout(), output.FeedFromResult(result))
}
