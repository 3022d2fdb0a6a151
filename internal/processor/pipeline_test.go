package processor_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/processor"
)

func readFixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
}

func TestNewPipeline_WithOptions(t *testing.T) {
	p := processor.NewPipeline(
		processor.WithLLMExtractor(nil),
	)
	require.NotNil(t, p)
}

func TestProcessBytes_TextDocument(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessBytes(ctx, readFixture(t, "single_invoice.txt"))
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, processor.MethodTextFlow, result.Method)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Empty(t, result.Warnings)

	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Equal(t, "USD", result.Invoice.Header.Currency)
	assert.Len(t, result.Invoice.Items, 2)

	require.NotNil(t, result.Invoice.Summary)
	assert.Equal(t, 60, result.Invoice.Summary.TotalUnits)
}

func TestProcessBytes_MultiPageText(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	// Form feeds separate the pages of a plain-text document.
	result := p.ProcessBytes(ctx, readFixture(t, "shipment_invoice.txt"))
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, processor.MethodTextFlow, result.Method)
	assert.Len(t, result.Invoice.Items, 3)
	assert.Empty(t, result.Warnings)

	require.NotNil(t, result.Invoice.Summary)
	assert.Equal(t, 126, result.Invoice.Summary.TotalUnits)
}

func TestProcessBytes_InvalidPDF(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessBytes(ctx, []byte("%PDF-1.4\nnot really a pdf"))
	require.NotNil(t, result.Error)

	var extErr *model.ExtractionError
	require.ErrorAs(t, result.Error, &extErr)
	assert.Equal(t, "pdf", extErr.Method)
}

func TestProcessText(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessText(ctx, string(readFixture(t, "single_invoice.txt")))
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, processor.MethodTextFlow, result.Method)
	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Len(t, result.Invoice.Items, 2)
}

func TestProcessPDF_Invalid(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessPDF(ctx, []byte("%PDF-1.4\ntruncated"))
	require.NotNil(t, result.Error)
}

func TestPageCount(t *testing.T) {
	p := processor.NewPipeline()

	assert.Equal(t, 1, p.PageCount(readFixture(t, "single_invoice.txt")))
	assert.Equal(t, 2, p.PageCount(readFixture(t, "shipment_invoice.txt")))
	assert.Equal(t, 1, p.PageCount([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, 0, p.PageCount([]byte("%PDF-1.4\nbroken")))
	assert.Equal(t, 0, p.PageCount([]byte{0x00, 0x01, 0x02, 0x03}))
}

func TestPagesFromText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		pages int
	}{
		{"single page", "one page of text", 1},
		{"two pages", "first\fsecond", 2},
		{"trailing form feed", "first\fsecond\f", 2},
		{"trailing blank page", "first\f  \n", 1},
		{"empty middle page", "first\f\fthird", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := processor.PagesFromText(tt.text)
			require.Len(t, pages, tt.pages)
			for i, page := range pages {
				assert.Equal(t, i, page.PageIndex)
			}
		})
	}
}

func TestProcessBytes_UnknownFormat(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessBytes(ctx, []byte{0x00, 0x01, 0x02, 0x03})
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "unsupported document format")
}

func TestProcessFile(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessFile(ctx, "testdata/single_invoice.txt")
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)
	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
}

func TestProcessFile_Missing(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessFile(ctx, "testdata/no_such_file.txt")
	require.NotNil(t, result.Error)
}

func TestProcessPages_GridLayout(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	pages := []model.RawPage{
		{
			PageIndex: 0,
			Text:      "tabular page without banner markers",
			TableGrids: [][][]string{
				{
					{"CUSTOMER #", "SALES ORDER #", "CUSTOMER PO"},
					{"44532211", "552381906", "4500294831"},
				},
			},
		},
	}

	result := p.ProcessPages(ctx, pages)
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, processor.MethodTableGrid, result.Method)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "44532211", result.Invoice.Header.CustomerID)
	assert.Equal(t, "USD", result.Invoice.Header.Currency)
}

func TestProcessPages_GridsFillFlowHeader(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	// Banner page without the currency-terminated header section; the
	// commercial fields arrive through table grids instead.
	text := "Hybrid Manifest DUN#054321987\n" +
		"Rezonia Global Trade B.V.01/15/2024 Date 310884295 Invoice #\n" +
		"157317-001 Size\n" +
		"Qty XS\n" +
		"24\n" +
		"HBG CN Country of Origin: NOTES\n" +
		"Style Description\n" +
		"FLEECE LINED JACKET ALPINE\n" +
		"Fill text 6202.93.0500 Tariff code 4410773301 Delivery # RDS Certified 45.50 1092.00"

	pages := []model.RawPage{
		{
			PageIndex: 0,
			Text:      text,
			TableGrids: [][][]string{
				{
					{"CUSTOMER #", "SALES ORDER #", "CUSTOMER PO"},
					{"44532211", "552381906", "4500294831"},
				},
			},
		},
	}

	result := p.ProcessPages(ctx, pages)
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)

	assert.Equal(t, processor.MethodTextFlow, result.Method)
	assert.Equal(t, "310884295", result.Invoice.Header.InvoiceID)
	assert.Equal(t, "44532211", result.Invoice.Header.CustomerID)
	assert.Equal(t, "552381906", result.Invoice.Header.SalesOrderID)
	assert.Equal(t, "4500294831", result.Invoice.Header.CustomerPO)
	// Grid fill supplements fields; it never invents a currency for the
	// running-text layout.
	assert.Empty(t, result.Invoice.Header.Currency)

	require.Len(t, result.Invoice.Items, 1)
	assert.Equal(t, "4410773301", result.Invoice.Items[0].DeliveryID)
}

func TestProcessPages_NoMatchingAdapter(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	pages := []model.RawPage{{PageIndex: 0, Text: "free text without any known markers"}}

	result := p.ProcessPages(ctx, pages)
	require.NotNil(t, result.Error)

	var parseErr *model.ParseError
	require.ErrorAs(t, result.Error, &parseErr)
	assert.Equal(t, model.LayoutUnknown, parseErr.Layout)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{
			name:     "PDF",
			data:     []byte("%PDF-1.4\n%some content"),
			expected: processor.FormatPDF,
		},
		{
			name:     "PNG image",
			data:     []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
			expected: processor.FormatImage,
		},
		{
			name:     "JPEG image",
			data:     []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46},
			expected: processor.FormatImage,
		},
		{
			name:     "TIFF little-endian",
			data:     []byte{0x49, 0x49, 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00},
			expected: processor.FormatImage,
		},
		{
			name:     "TIFF big-endian",
			data:     []byte{0x4D, 0x4D, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08},
			expected: processor.FormatImage,
		},
		{
			name:     "Plain page text",
			data:     []byte("Rezonia Global Trade B.V.01/15/2024 Date 310884295 Invoice #\n"),
			expected: processor.FormatText,
		},
		{
			name:     "Binary junk",
			data:     []byte{0x00, 0x01, 0x02, 0x03},
			expected: processor.FormatUnknown,
		},
		{
			name:     "Empty data",
			data:     []byte{},
			expected: processor.FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format := processor.DetectFormat(tt.data)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		format   processor.Format
		expected string
	}{
		{processor.FormatPDF, "pdf"},
		{processor.FormatText, "text"},
		{processor.FormatImage, "image"},
		{processor.FormatUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.format.String())
		})
	}
}

func TestExtractionMethod(t *testing.T) {
	assert.Equal(t, processor.ExtractionMethod("text_flow"), processor.MethodTextFlow)
	assert.Equal(t, processor.ExtractionMethod("table_grid"), processor.MethodTableGrid)
	assert.Equal(t, processor.ExtractionMethod("llm_text"), processor.MethodLLMText)
	assert.Equal(t, processor.ExtractionMethod("llm_vision"), processor.MethodLLMVision)
}

func TestConfidenceScores(t *testing.T) {
	assert.Equal(t, 1.0, processor.ConfidenceTextFlow)
	assert.Equal(t, 0.9, processor.ConfidenceTableGrid)
	assert.Equal(t, 0.8, processor.ConfidenceLLMText)
	assert.Equal(t, 0.7, processor.ConfidenceLLMVision)
}

func TestProcessImage_NoLLM(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline() // No LLM extractor

	result := p.ProcessImage(ctx, []byte("fake image"), "image/png")
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "LLM extractor not configured")
}

func TestResult_Fields(t *testing.T) {
	result := &processor.Result{
		Invoice:    nil,
		Method:     processor.MethodLLMText,
		Confidence: 0.8,
		Warnings:   []string{"warning1", "warning2"},
		Error:      nil,
	}

	assert.Equal(t, processor.MethodLLMText, result.Method)
	assert.Equal(t, 0.8, result.Confidence)
	assert.Len(t, result.Warnings, 2)
}

// Benchmark tests

func BenchmarkDetectFormat_PDF(b *testing.B) {
	data := []byte("%PDF-1.4\n%some content here")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.DetectFormat(data)
	}
}

func BenchmarkDetectFormat_Text(b *testing.B) {
	data := []byte("Rezonia Global Trade B.V.01/15/2024 Date 310884295 Invoice #\nUSD Currency\n")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		processor.DetectFormat(data)
	}
}

func BenchmarkProcessBytes_Text(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()
	data := readFixture(b, "single_invoice.txt")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ProcessBytes(ctx, data)
	}
}
