package invoicelib_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-extractor/pkg/invoicelib"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestNewProcessor(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false

	proc := invoicelib.NewProcessor(opts)
	require.NotNil(t, proc)
}

func TestNewDefaultProcessor(t *testing.T) {
	proc := invoicelib.NewDefaultProcessor()
	require.NotNil(t, proc)
}

func TestDefaultPipelineOptions(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()

	assert.Equal(t, 0.75, opts.ReviewThreshold)
	assert.True(t, opts.EnableLLM)
	assert.True(t, opts.ValidatePDF)
	assert.Equal(t, "https://openrouter.ai/api/v1", opts.LLMBaseURL)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", opts.LLMModel)
	assert.Equal(t, "anthropic/claude-3.5-sonnet", opts.LLMVisionModel)
}

func TestProcessorProcessText(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	text := string(readFixture(t, "invoice.txt"))

	result, err := proc.ProcessText(context.Background(), text)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Equal(t, "text_flow", result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, 1, result.Pages)
	assert.False(t, result.NeedsReview)
	assert.Len(t, result.Invoice.Items, 2)
}

func TestProcessorProcess_AutoDetectText(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	data := readFixture(t, "shipment_invoice.txt")

	result, err := proc.Process(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Equal(t, "text_flow", result.Method)
	assert.Equal(t, 2, result.Pages)
	assert.Len(t, result.Invoice.Items, 3)
}

func TestProcessorProcessPages(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	pages := []invoicelib.RawPage{
		{PageIndex: 0, Text: string(readFixture(t, "invoice.txt"))},
	}

	result, err := proc.ProcessPages(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Equal(t, 1, result.Pages)
}

func TestProcessorProcess_InvalidFormat(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	// Random binary data that's not a known format
	data := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}

	_, err := proc.Process(context.Background(), bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestProcessorProcessPDF_Invalid(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	_, err := proc.ProcessPDF(context.Background(), bytes.NewReader([]byte("%PDF-1.4\ntruncated")))
	require.Error(t, err)
}

func TestProcessorProcessImage_WithoutLLM(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

	_, err := proc.ProcessImage(context.Background(), png, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM extractor not configured")
}

func TestProcessorProcessBatch(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	inputs := []io.Reader{
		bytes.NewReader(readFixture(t, "invoice.txt")),
		bytes.NewReader(readFixture(t, "shipment_invoice.txt")),
	}

	results, err := proc.ProcessBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Len(t, results[0].Invoice.Items, 2)
	assert.Len(t, results[1].Invoice.Items, 3)
}

func TestProcessorProcessBatch_PartialFailure(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	proc := invoicelib.NewProcessor(opts)

	inputs := []io.Reader{
		bytes.NewReader(readFixture(t, "invoice.txt")),
		bytes.NewReader([]byte{0x00, 0x01, 0x02}),
	}

	results, err := proc.ProcessBatch(context.Background(), inputs)
	require.Error(t, err)
	require.Len(t, results, 2)

	// The good input still lands in its slot
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
}

func TestExtractionResult_NeedsReview(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false
	opts.ReviewThreshold = 0.95
	proc := invoicelib.NewProcessor(opts)

	result, err := proc.ProcessText(context.Background(), string(readFixture(t, "invoice.txt")))
	require.NoError(t, err)

	// Running-text parses carry 1.0 confidence, above any review threshold
	assert.False(t, result.NeedsReview)
}

// Test re-exported types
func TestReExportedTypes(t *testing.T) {
	// Verify that types are properly re-exported
	var header invoicelib.InvoiceHeader
	header.InvoiceID = "310884295"
	assert.Equal(t, "310884295", header.InvoiceID)

	var item invoicelib.LineItem
	item.StyleColor = "157317-001"
	assert.Equal(t, "157317-001", item.StyleColor)

	var page invoicelib.RawPage
	page.PageIndex = 3
	assert.Equal(t, 3, page.PageIndex)

	// Test layout constants
	assert.Equal(t, invoicelib.Layout("text_flow"), invoicelib.LayoutTextFlow)
	assert.Equal(t, invoicelib.Layout("table_grid"), invoicelib.LayoutTableGrid)
	assert.Equal(t, invoicelib.Layout("unknown"), invoicelib.LayoutUnknown)

	// Test the sentinel for unparseable dates
	assert.Equal(t, "9999-12-31", invoicelib.SentinelDate)

	// Test warning taxonomy codes
	assert.Equal(t, "FIELD_ABSENT", invoicelib.CodeFieldAbsent)
	assert.Equal(t, "FIELD_MALFORMED", invoicelib.CodeFieldMalformed)
	assert.Equal(t, "HEADER_REAPPEARED", invoicelib.CodeHeaderReappeared)
}

func TestProcessorImplementsPipeline(t *testing.T) {
	opts := invoicelib.DefaultPipelineOptions()
	opts.EnableLLM = false

	var pipeline invoicelib.Pipeline = invoicelib.NewProcessor(opts)
	require.NotNil(t, pipeline)
}
