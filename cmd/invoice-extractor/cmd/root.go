package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/config"
)

var (
	version = "1.0.0"

	// Global flags
	verbose        bool
	outputFormat   string
	storePath      string
	apiKey         string
	llmBaseURL     string
	llmModel       string
	llmVisionModel string
)

var rootCmd = &cobra.Command{
	Use:   "invoice-extractor",
	Short: "Extract structured data from wholesale shipment invoices",
	Long: `Invoice Extractor is a CLI tool for pulling structured data out of
wholesale apparel shipment invoices.

Supports:
  - PDF documents: deterministic page-text parsing
  - Plain text: pre-extracted page text, one page per form feed
  - Images: LLM vision extraction (requires an API key)

Examples:
  # Process a single PDF
  invoice-extractor process invoice.pdf

  # Process a scanned invoice with the LLM fallback
  invoice-extractor process scan.png --api-key <openrouter-key>

  # Process a directory and write a flat CSV
  invoice-extractor process invoices/ -f csv -o invoices.csv

  # Validate an invoice
  invoice-extractor validate invoice.pdf`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, csv, table, xlsx)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Job store path (env: INVOICE_EXTRACTOR_STORE)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for LLM provider (env: LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "LLM API base URL (env: LLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "LLM model for text extraction (env: LLM_MODEL)")
	rootCmd.PersistentFlags().StringVar(&llmVisionModel, "llm-vision-model", "", "LLM model for vision/image extraction (env: LLM_VISION_MODEL)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	cfg := config.Load()

	if storePath == "" {
		storePath = cfg.Store.Path
	}
	if apiKey == "" {
		apiKey = cfg.LLM.APIKey
	}
	if llmBaseURL == "" {
		llmBaseURL = cfg.LLM.BaseURL
	}
	if llmModel == "" {
		llmModel = cfg.LLM.Model
	}
	if llmVisionModel == "" {
		llmVisionModel = cfg.LLM.VisionModel
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
