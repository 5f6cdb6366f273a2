package main

import (
	"fmt"
	"net/url"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <handle>",
	Short: "Open a developer's GitHub profile in the browser",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func profileURL(handle string) string {
	return "https://github.com/" + url.PathEscape(handle)
}

func runOpen(cmd *cobra.Command, args []string) error {
	target := profileURL(args[0])
	if err := browser.OpenURL(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}
