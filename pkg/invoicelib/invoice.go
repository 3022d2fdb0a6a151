// Package invoicelib provides a public API for processing shipment invoices.
//
// This package exposes the core types and the extraction pipeline for
// turning invoice documents, whether native PDFs, pre-extracted page text
// or scanned images, into structured records.
//
// Example usage:
//
//	proc := invoicelib.NewDefaultProcessor()
//	result, err := proc.Process(ctx, reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Invoice.Header.InvoiceID)
package invoicelib

import "github.com/rezonia/invoice-extractor/internal/model"

// Re-export core types for public API
type (
	ParsedInvoice = model.ParsedInvoice
	InvoiceHeader = model.InvoiceHeader
	LineItem      = model.LineItem
	SummaryRecord = model.SummaryRecord
	RawPage       = model.RawPage
	Warning       = model.Warning
	Layout        = model.Layout
)

// Re-export layout constants
const (
	LayoutTextFlow  = model.LayoutTextFlow
	LayoutTableGrid = model.LayoutTableGrid
	LayoutUnknown   = model.LayoutUnknown
)

// SentinelDate marks transaction dates that could not be normalized.
const SentinelDate = model.SentinelDate

// Re-export warning taxonomy codes
const (
	CodeFieldAbsent             = model.CodeFieldAbsent
	CodeFieldMalformed          = model.CodeFieldMalformed
	CodeAnchorSearchExhausted   = model.CodeAnchorSearchExhausted
	CodeClassificationAmbiguous = model.CodeClassificationAmbiguous
	CodeHeaderReappeared        = model.CodeHeaderReappeared
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	ExtractionError = model.ExtractionError
)
