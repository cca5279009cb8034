package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageindex/internal/server"
	"github.com/jackzampolin/pageindex/internal/server/endpoints"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PageIndex server",
	Long: `Start the PageIndex HTTP server.

The server provides:
  - POST /run          - Upload a PDF (multipart field "file"), get its table of contents
  - GET  /health       - Basic server health check
  - GET  /ready        - Readiness check (includes worker pool status)
  - GET  /swagger      - API documentation

Extraction options and the log level are reloaded when the config file changes.

Examples:
  pageindex serve                    # Start on default port 8000
  pageindex serve --port 3000        # Start on custom port
  pageindex serve --host 127.0.0.1   # Bind to loopback only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, cm, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cm.Get()

		// Set up logger
		var levelVar slog.LevelVar
		logger, err := newLogger(os.Stdout, cfg.Log, &levelVar)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cm.SetLogger(logger)
		if f := cm.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
		}

		if err := h.EnsureExists(); err != nil {
			return err
		}

		opts, err := cfg.PageIndex.ToOptions()
		if err != nil {
			return err
		}
		timeout, err := cfg.Server.Timeout()
		if err != nil {
			return err
		}

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host: host,
			Port: port,
			Run: endpoints.RunEndpoint{
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				Timeout:        timeout,
				StagingDir:     cfg.Server.StagingDir,
			},
			Extractor:     newEngine(cfg.PageIndex, logger),
			Options:       opts,
			Workers:       cfg.Server.Workers,
			ConfigManager: cm,
			LevelVar:      &levelVar,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		cm.WatchConfig()

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8000", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
