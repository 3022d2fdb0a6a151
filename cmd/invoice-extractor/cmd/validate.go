package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/processor"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice files",
	Long: `Validate one or more invoice files for completeness and consistency.

Checks performed:
  - Required fields present (invoice number, line items)
  - Identifier formats (9-digit invoice number, 10-digit delivery number)
  - Price arithmetic (price x qty = extended price)
  - Summary totals against line item sums

Examples:
  invoice-extractor validate invoice.pdf
  invoice-extractor validate *.pdf --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Enable strict validation (all fields required)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	pipeline := buildPipeline()
	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		result := validateFile(pipeline, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	// Output results
	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	// Table output
	for _, r := range results {
		if r.Valid {
			fmt.Printf("✓ %s: VALID\n", r.File)
		} else {
			fmt.Printf("✗ %s: INVALID\n", r.File)
			for _, e := range r.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}
		for _, w := range r.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}

	return nil
}

func validateFile(pipeline *processor.Pipeline, filePath string) *ValidationResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ValidationResult{
		File:     filePath,
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail(fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	pipelineResult := pipeline.ProcessBytes(ctx, data)
	if pipelineResult.Error != nil {
		result.fail(fmt.Sprintf("parse error: %v", pipelineResult.Error))
		return result
	}

	inv := pipelineResult.Invoice
	if inv == nil || inv.Header == nil {
		result.fail("no invoice data extracted")
		return result
	}

	header := inv.Header

	// Required field validation
	if header.InvoiceID == "" {
		result.fail("missing invoice number")
	} else if !isDigits(header.InvoiceID, 9) {
		result.warn(fmt.Sprintf("invoice number format may be invalid: %s", header.InvoiceID))
	}

	if header.TransactionDate == "" || header.TransactionDate == model.SentinelDate {
		if strictValidation {
			result.fail("missing or unparseable transaction date")
		} else {
			result.warn("missing or unparseable transaction date")
		}
	}

	if header.Currency == "" {
		if strictValidation {
			result.fail("missing currency")
		} else {
			result.warn("missing currency")
		}
	}

	if strictValidation {
		if header.SoldTo == "" {
			result.fail("missing sold-to party")
		}
		if header.CustomerPO == "" {
			result.fail("missing customer PO")
		}
	}

	// Line item validation
	if len(inv.Items) == 0 {
		result.fail("no line items")
	}

	for i, item := range inv.Items {
		if item.StyleColor == "" {
			result.fail(fmt.Sprintf("line item %d: missing style-color", i+1))
		}
		if item.Qty <= 0 {
			result.warn(fmt.Sprintf("line item %d: zero quantity", i+1))
		}
		if item.DeliveryID != "" && !isDigits(item.DeliveryID, 10) {
			result.warn(fmt.Sprintf("line item %d: delivery number format may be invalid: %s", i+1, item.DeliveryID))
		}
		if !decimal.IsNonNegative(item.Price) {
			result.warn(fmt.Sprintf("line item %d: negative price %s", i+1, item.Price))
		}

		// Check calculation: price x qty = extended price
		if !item.Price.IsZero() && !item.ExtPrice.IsZero() {
			expected := decimal.ExtendedPrice(item.Price, item.Qty)
			if !expected.Equal(item.ExtPrice) {
				result.warn(fmt.Sprintf("line item %d: price(%s) x qty(%d) = %s, but extended price is %s",
					i+1, item.Price, item.Qty, expected, item.ExtPrice))
			}
		}
	}

	// Summary validation
	if sum := inv.Summary; sum != nil {
		if sum.TotalUnits != inv.TotalQty() {
			result.warn(fmt.Sprintf("total units mismatch: summary says %d, line items sum to %d",
				sum.TotalUnits, inv.TotalQty()))
		}
		if !sum.MerchandiseTotal.IsZero() && !sum.MerchandiseTotal.Equal(inv.SumExtPrice()) {
			result.warn(fmt.Sprintf("merchandise total mismatch: summary says %s, line items sum to %s",
				sum.MerchandiseTotal, inv.SumExtPrice()))
		}
	} else if strictValidation {
		result.fail("missing summary totals")
	}

	for _, w := range pipelineResult.Warnings {
		result.warn(w)
	}

	return result
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ValidationResult) fail(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *ValidationResult) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
