package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/config"
	apperrors "github.com/stackmates/stackmates/internal/errors"
	"github.com/stackmates/stackmates/internal/logging"
	"github.com/stackmates/stackmates/internal/output"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile      string
	verbose      bool
	outputFormat string

	logger    *logrus.Logger
	logCloser io.Closer
	cfg       *config.Config
	formatter output.Formatter
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, errorMessage(err, verbose))
		stop()
		os.Exit(1)
	}
}

// errorMessage renders a command failure; verbose adds the structured detail
func errorMessage(err error, verbose bool) string {
	var appErr *apperrors.Error
	if verbose && stderrors.As(err, &appErr) {
		return fmt.Sprintf("Error: %v\n\n%s", err, appErr.DetailedString())
	}
	return fmt.Sprintf("Error: %v\n", err)
}

var rootCmd = &cobra.Command{
	Use:   "stackmates",
	Short: "Find developers who star the same repositories you do",
	Long: `stackmates looks at the repositories you have starred on GitHub, finds
other people who starred the same ones, and shows the ones you overlap with
most.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to load config, using defaults: %v\n", err)
			cfg = config.Default()
		}

		logCfg := logging.DefaultConfig(verbose)
		if !verbose && cfg.Log.Level != "" {
			logCfg.Level = cfg.Log.Level
		}
		logCfg.OutputFile = cfg.Log.File
		logCfg.JSONFormat = cfg.Log.JSON

		logger, logCloser, err = logging.New(logCfg)
		if err != nil {
			return err
		}

		if result := cfg.Validate(); result.HasErrors() {
			return fmt.Errorf("%s", result.Error())
		}

		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .stackmates/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")

	rootCmd.SetVersionTemplate(`stackmates {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
}
