package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackmates/stackmates/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session and feed over a JSON API",
	Long: `Start a local JSON API for a browser front end.

A stored session is restored on startup. Routes:
  GET  /health
  GET  /api/v1/session
  POST /api/v1/login      {"token": "..."}
  POST /api/v1/logout
  POST /api/v1/refresh
  GET  /api/v1/developers
  GET  /api/v1/users/:handle
  GET  /api/v1/search?q=&limit=`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sess, _, err := newSession()
	if err != nil {
		return err
	}
	if err := resume(ctx, sess, true); err != nil {
		logger.WithError(err).Warn("stored session could not be restored")
	}

	serverCfg := cfg.Server
	if serveAddr != "" {
		serverCfg.Addr = serveAddr
	}

	fmt.Fprintf(os.Stderr, "🌌 stackmates API listening on http://%s\n", serverCfg.Addr)
	return server.New(sess, serverCfg, logger).Run(ctx)
}
