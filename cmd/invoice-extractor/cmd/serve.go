package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/config"
	"github.com/rezonia/invoice-extractor/internal/server"
)

var (
	serverAddr     string
	serverDebug    bool
	requestTimeout time.Duration
	maxUploadMB    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for processing invoices.

The API provides endpoints for:
  - POST /api/v1/process/pdf    - Process PDF invoice
  - POST /api/v1/process/text   - Process pre-extracted page text
  - POST /api/v1/process/image  - Process image invoice
  - POST /api/v1/process/auto   - Auto-detect and process
  - POST /api/v1/validate       - Validate invoice
  - POST /api/v1/info           - Get file information
  - GET  /health                - Health check

With a job store configured (--store):
  - POST /api/v1/jobs                 - Submit a document for processing
  - GET  /api/v1/jobs                 - List jobs
  - GET  /api/v1/jobs/:id             - Job status
  - GET  /api/v1/jobs/:id/result      - Parsed invoice
  - GET  /api/v1/jobs/:id/export      - Download as xlsx, csv, json or xml

Examples:
  # Start server on default port
  invoice-extractor serve

  # Start with a job store and an API key
  invoice-extractor serve --store jobs.db --api-key <key>

  # Start in debug mode
  invoice-extractor serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default :8080)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 0, "Per-request processing timeout (default 60s)")
	serveCmd.Flags().IntVar(&maxUploadMB, "max-upload-mb", 0, "Maximum upload size in MB (default 32)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	// Flags override the environment
	if serverAddr != "" {
		cfg.Server.Addr = serverAddr
	}
	if serverDebug {
		cfg.Server.Debug = true
	}
	if requestTimeout > 0 {
		cfg.Server.RequestTimeout = requestTimeout
	}
	if maxUploadMB > 0 {
		cfg.Server.MaxUploadBytes = int64(maxUploadMB) << 20
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if llmBaseURL != "" {
		cfg.LLM.BaseURL = llmBaseURL
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if llmVisionModel != "" {
		cfg.LLM.VisionModel = llmVisionModel
	}

	level := slog.LevelInfo
	if cfg.Server.Debug || verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		srv.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
	if cfg.LLM.APIKey != "" {
		fmt.Println("LLM extraction enabled")
	} else {
		fmt.Println("LLM extraction disabled (no API key)")
	}
	if cfg.Store.Path != "" {
		fmt.Printf("Job store: %s\n", cfg.Store.Path)
	}

	return srv.Run()
}
