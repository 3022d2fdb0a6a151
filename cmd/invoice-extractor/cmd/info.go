package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/parser"
	"github.com/rezonia/invoice-extractor/internal/parser/flow"
	"github.com/rezonia/invoice-extractor/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about invoice files",
	Long: `Inspect invoice files without running a full extraction.

Shows:
  - Detected file format (PDF, text, image)
  - Page count and per-page roles (first, continuation, last)
  - Which layout adapter claims the document

Examples:
  invoice-extractor info invoice.pdf
  invoice-extractor info *.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	pipeline := processor.NewPipeline()
	for _, file := range files {
		printFileInfo(pipeline, file)
		fmt.Println()
	}

	return nil
}

func printFileInfo(pipeline *processor.Pipeline, filePath string) {
	fmt.Printf("File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Size: %d bytes\n", info.Size())
	fmt.Printf("  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("  Error reading file: %v\n", err)
		return
	}

	format := processor.DetectFormat(data)
	fmt.Printf("  Format: %s\n", formatName(format))

	switch format {
	case processor.FormatPDF:
		if pages := pipeline.PageCount(data); pages > 0 {
			fmt.Printf("  Pages: %d\n", pages)
		}
	case processor.FormatText:
		printTextInfo(string(data))
	}
}

// printTextInfo reports how the layout detection sees a text document:
// the page roles the splitter assigns, and which adapter claims it.
func printTextInfo(text string) {
	pages := processor.PagesFromText(text)
	fmt.Printf("  Pages: %d (%s)\n", len(pages), strings.Join(pageRoles(pages), ", "))

	if adapter, err := parser.NewRegistry().Detect(pages); err == nil {
		fmt.Printf("  Layout: %s\n", adapter.Layout())
	} else {
		fmt.Println("  Layout: none (no adapter claims this document)")
	}

	if preview := getPreview(text, 200); preview != "" {
		fmt.Printf("  Preview: %s\n", preview)
	}
}

func pageRoles(pages []model.RawPage) []string {
	roles := make([]string, len(pages))
	for i, p := range pages {
		roles[i] = flow.Classify(p.Text).Role.String()
	}
	return roles
}

func formatName(f processor.Format) string {
	switch f {
	case processor.FormatPDF:
		return "PDF"
	case processor.FormatText:
		return "Plain text"
	case processor.FormatImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// getPreview flattens the document head to a single line.
func getPreview(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) > maxLen {
		content = content[:maxLen] + "..."
	}
	return content
}
