package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/config"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect stackmates configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (token masked)",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	RunE:  runConfigPath,
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a file (token left out)",
	Long: `Write the effective configuration to a YAML file you can edit.

The file defaults to .stackmates/config.yaml in the current directory. An
existing file is left alone unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.GitHub.Token != "" {
		shown.GitHub.Token = config.MaskToken(shown.GitHub.Token)
	}

	out, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))

	if result := cfg.Validate(); len(result.Warnings) > 0 {
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %s\n", w)
		}
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := config.ConfigFileUsed(cfgFile)
	if path == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "(no config file, using defaults)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(".stackmates", "config.yaml")
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s\n", path)
	return nil
}
