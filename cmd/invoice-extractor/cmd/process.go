package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/export"
	"github.com/rezonia/invoice-extractor/internal/llm"
	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/processor"
	"github.com/rezonia/invoice-extractor/internal/store"
)

var (
	outputFile  string
	timeout     time.Duration
	saveResults bool
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Process invoice files",
	Long: `Process one or more invoice files and extract structured data.

Supported formats:
  - PDF: .pdf
  - Plain text: .txt (one page per form feed)
  - Images: .png, .jpg, .jpeg, .tiff

The extraction flow:
  1. PDF and text files: deterministic page-text parsing (no API key needed)
  2. Unparseable documents: LLM text extraction (requires API key)
  3. Images: LLM vision extraction (requires API key)

Examples:
  invoice-extractor process invoice.pdf
  invoice-extractor process scan.png --api-key <key>
  invoice-extractor process *.pdf -o results.json
  invoice-extractor process invoices/ -f table
  invoice-extractor process invoice.pdf -f xlsx -o invoice.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	processCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Processing timeout per file")
	processCmd.Flags().BoolVar(&saveResults, "save", false, "Record results in the job store")
}

func runProcess(cmd *cobra.Command, args []string) error {
	// Collect all files to process
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}

	printVerbose("Found %d files to process\n", len(files))

	pipeline := buildPipeline()

	var jobs *store.Store
	if saveResults {
		if storePath == "" {
			return fmt.Errorf("--save requires a job store (set --store or INVOICE_EXTRACTOR_STORE)")
		}
		jobs, err = store.Open(storePath, nil)
		if err != nil {
			return fmt.Errorf("opening job store: %w", err)
		}
		defer jobs.Close()
	}

	// Process files
	results := make([]*ProcessResult, 0, len(files))
	for _, file := range files {
		printVerbose("Processing: %s\n", file)

		data, err := os.ReadFile(file)
		if err != nil {
			results = append(results, &ProcessResult{
				File:  file,
				Error: fmt.Sprintf("failed to read file: %v", err),
			})
			continue
		}

		result := processFile(pipeline, file, data)
		results = append(results, result)

		if result.Error != "" {
			printVerbose("  Error: %s\n", result.Error)
		} else {
			printVerbose("  Method: %s, Confidence: %.2f\n", result.Method, result.Confidence)
		}

		if jobs != nil {
			if err := saveResult(jobs, file, data, result); err != nil {
				printVerbose("  Save failed: %v\n", err)
			}
		}
	}

	// Output results
	return outputResults(results)
}

// buildPipeline assembles the processing pipeline from the global LLM flags.
func buildPipeline() *processor.Pipeline {
	var llmExtractor *llm.Extractor
	if apiKey != "" {
		// Build client options
		var clientOpts []llm.ClientOption
		if llmBaseURL != "" {
			clientOpts = append(clientOpts, llm.WithBaseURL(llmBaseURL))
		}

		client := llm.NewClient(apiKey, clientOpts...)

		// Build extractor options
		var extractorOpts []llm.ExtractorOption
		if llmModel != "" {
			extractorOpts = append(extractorOpts, llm.WithTextModel(llmModel))
		}
		if llmVisionModel != "" {
			extractorOpts = append(extractorOpts, llm.WithVisionModel(llmVisionModel))
		}

		llmExtractor = llm.NewExtractor(client, extractorOpts...)
		printVerbose("LLM extraction enabled (text: %s, vision: %s)\n", llmModel, llmVisionModel)
	}

	return processor.NewPipeline(
		processor.WithLLMExtractor(llmExtractor),
	)
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		// Check if it's a glob pattern
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			// Check if it's a directory
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				// Walk directory
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && isSupportedFile(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && isSupportedFile(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".txt", ".text", ".png", ".jpg", ".jpeg", ".tiff", ".tif":
		return true
	default:
		return false
	}
}

func processFile(pipeline *processor.Pipeline, filePath string, data []byte) *ProcessResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result := &ProcessResult{
		File: filePath,
	}

	// Detect format
	format := processor.DetectFormat(data)
	ext := strings.ToLower(filepath.Ext(filePath))

	// Override format detection based on extension if ambiguous
	if format == processor.FormatUnknown {
		switch ext {
		case ".pdf":
			format = processor.FormatPDF
		case ".txt", ".text":
			format = processor.FormatText
		case ".png", ".jpg", ".jpeg", ".tiff", ".tif":
			format = processor.FormatImage
		}
	}

	// Process based on format
	var pipelineResult *processor.Result
	switch format {
	case processor.FormatPDF:
		pipelineResult = pipeline.ProcessPDF(ctx, data)

	case processor.FormatText:
		pipelineResult = pipeline.ProcessText(ctx, string(data))

	case processor.FormatImage:
		pipelineResult = pipeline.ProcessImage(ctx, data, getMimeType(ext))

	default:
		result.Error = "unsupported file format"
		return result
	}

	// Convert result
	if pipelineResult.Error != nil {
		result.Error = pipelineResult.Error.Error()
		return result
	}

	result.Invoice = pipelineResult.Invoice
	result.Method = string(pipelineResult.Method)
	result.Confidence = pipelineResult.Confidence
	result.Warnings = pipelineResult.Warnings
	result.Pages = pipeline.PageCount(data)

	return result
}

// saveResult records one processed file in the job store. Files whose bytes
// are already stored keep their existing job.
func saveResult(jobs *store.Store, file string, data []byte, result *ProcessResult) error {
	if existing, err := jobs.FindJobByHash(store.HashBytes(data)); err == nil {
		printVerbose("  Already stored as job %s\n", existing.ID)
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	job := store.NewJob(filepath.Base(file), data)
	if result.Error != "" {
		job.MarkFailed(errors.New(result.Error))
		return jobs.SaveJob(job)
	}

	job.MarkCompleted(result.Method, result.Pages, len(result.Invoice.Items), len(result.Warnings))
	if err := jobs.SaveJob(job); err != nil {
		return err
	}
	if err := jobs.SaveResult(job.ID, result.Invoice); err != nil {
		return err
	}

	printVerbose("  Stored as job %s\n", job.ID)
	return nil
}

func getMimeType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff", ".tif":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func outputResults(results []*ProcessResult) error {
	if outputFormat == "xlsx" {
		return outputXLSX(results)
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		writer = f
	}

	switch outputFormat {
	case "json":
		return outputJSON(writer, results)
	case "table":
		return outputTable(writer, results)
	case "csv":
		return outputCSV(writer, results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(w io.Writer, results []*ProcessResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputTable(w io.Writer, results []*ProcessResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tINVOICE\tDATE\tCURRENCY\tITEMS\tUNITS\tTOTAL\tMETHOD\tCONFIDENCE")
	fmt.Fprintln(tw, "----\t-------\t----\t--------\t-----\t-----\t-----\t------\t----------")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\t\t\t\n", r.File, r.Error)
			continue
		}

		if r.Invoice == nil || r.Invoice.Header == nil {
			continue
		}

		header := r.Invoice.Header
		total := r.Invoice.SumExtPrice()
		if r.Invoice.Summary != nil {
			total = r.Invoice.Summary.TotalInvoice
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\t%.2f\n",
			r.File,
			header.InvoiceID,
			header.TransactionDate,
			header.Currency,
			len(r.Invoice.Items),
			r.Invoice.TotalQty(),
			total.StringFixed(2),
			r.Method,
			r.Confidence,
		)
	}

	return tw.Flush()
}

// outputCSV writes parsed invoices in the flat export schema, one row per
// line item.
func outputCSV(w io.Writer, results []*ProcessResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(export.Columns); err != nil {
		return err
	}

	for _, r := range results {
		if r.Invoice == nil {
			continue
		}
		for _, row := range export.Flatten(r.Invoice) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func outputXLSX(results []*ProcessResult) error {
	if outputFile == "" {
		return fmt.Errorf("xlsx output requires --output")
	}

	var parsed []*ProcessResult
	for _, r := range results {
		if r.Invoice != nil {
			parsed = append(parsed, r)
		}
	}
	if len(parsed) != 1 {
		return fmt.Errorf("xlsx output supports exactly one parsed invoice, got %d", len(parsed))
	}

	r := parsed[0]
	exporter := export.NewExporter(nil)
	data, err := exporter.XLSX(r.Invoice, export.Metadata{
		SourceFile:  r.File,
		Method:      r.Method,
		PageCount:   r.Pages,
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return os.WriteFile(outputFile, data, 0644)
}

// ProcessResult holds the result of processing a single file
type ProcessResult struct {
	File       string               `json:"file"`
	Invoice    *model.ParsedInvoice `json:"invoice,omitempty"`
	Method     string               `json:"method,omitempty"`
	Confidence float64              `json:"confidence,omitempty"`
	Pages      int                  `json:"pages,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
	Error      string               `json:"error,omitempty"`
}
