package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/export"
	"github.com/rezonia/invoice-extractor/internal/store"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [job-id]",
	Short: "Export a stored result to a file",
	Long: `Export the parsed result of a completed job to a file.

The output format follows the file extension: .xlsx, .csv, .json or .xml.

Examples:
  invoice-extractor export <job-id> -o invoice.xlsx
  invoice-extractor export <job-id> -o invoice.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (required)")
	exportCmd.MarkFlagRequired("output")
}

func runExport(cmd *cobra.Command, args []string) error {
	jobs, err := openJobStore()
	if err != nil {
		return err
	}
	defer jobs.Close()

	job, err := jobs.GetJob(args[0])
	if err != nil {
		return err
	}
	if job.Status != store.StatusCompleted {
		return fmt.Errorf("job %s is %s, not completed", job.ID, job.Status)
	}

	inv, err := jobs.GetResult(job.ID)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(nil)

	var data []byte
	switch strings.ToLower(filepath.Ext(exportOutput)) {
	case ".xlsx":
		data, err = exporter.XLSX(inv, export.Metadata{
			SourceFile:  job.SourceFile,
			Method:      job.Method,
			PageCount:   job.PageCount,
			GeneratedAt: time.Now().UTC(),
		})
	case ".csv":
		data, err = exporter.CSV(inv)
	case ".json":
		data, err = exporter.JSON(inv)
	case ".xml":
		data, err = exporter.XML(inv)
	default:
		return fmt.Errorf("unsupported output extension: %s (use .xlsx, .csv, .json or .xml)", filepath.Ext(exportOutput))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%d bytes)\n", exportOutput, len(data))
	return nil
}
