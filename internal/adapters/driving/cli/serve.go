package cli

import (
	"fmt"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var (
	serveAddr string
	serveGops bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  GET  /                   welcome message
  GET  /healthz            liveness check
  POST /upload-documents/  multipart upload, field "files"
  POST /query/             {"query": "...", "top_k": 3}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, "+domain.DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveGops, "gops", false, "start a gops diagnostics agent")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.SetTimestamps(true)

	addr := serveAddr
	if addr == "" {
		addr = domain.DefaultAddr
		if settingsService != nil {
			if s, err := settingsService.Get(); err == nil && s.Server.Addr != "" {
				addr = s.Server.Addr
			}
		}
	}

	if serveGops {
		if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
			logger.Warn("gops: %v", err)
		}
		defer agent.Close()
	}

	p, err := getPipeline(cmd.Context())
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(p.Ingest, p.Query, httpapi.WithMediaTypeChecker(p.Checker))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "docqa API listening on %s\n", addr)
	return server.Run(cmd.Context(), addr)
}
