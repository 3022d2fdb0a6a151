// Package processor orchestrates extraction and parsing into a single entry
// point. Deterministic layout adapters run first; an optional LLM extractor
// serves as fallback for documents they cannot read.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/extract"
	"github.com/rezonia/invoice-extractor/internal/llm"
	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/parser"
	"github.com/rezonia/invoice-extractor/internal/parser/grid"
)

// ExtractionMethod identifies how an invoice was extracted
type ExtractionMethod string

const (
	MethodTextFlow  ExtractionMethod = "text_flow"
	MethodTableGrid ExtractionMethod = "table_grid"
	MethodLLMText   ExtractionMethod = "llm_text"
	MethodLLMVision ExtractionMethod = "llm_vision"
)

// Confidence scores per extraction method. Deterministic parsing of the
// running-text layout is exact; everything below it needs review at some
// threshold chosen by the caller.
const (
	ConfidenceTextFlow  = 1.0
	ConfidenceTableGrid = 0.9
	ConfidenceLLMText   = 0.8
	ConfidenceLLMVision = 0.7
)

// Format represents detected file format
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatText
	FormatImage
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatText:
		return "text"
	case FormatImage:
		return "image"
	default:
		return "unknown"
	}
}

// DetectFormat detects the file format from content magic bytes
func DetectFormat(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FormatImage
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return FormatImage
	case bytes.HasPrefix(data, []byte{0x49, 0x49, 0x2A, 0x00}),
		bytes.HasPrefix(data, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FormatImage
	case isPlainText(data):
		return FormatText
	default:
		return FormatUnknown
	}
}

// isPlainText reports whether the head of data looks like page text rather
// than a binary container.
func isPlainText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	for _, b := range head {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			return false
		}
	}
	return true
}

// Result contains the outcome of processing one document
type Result struct {
	Invoice    *model.ParsedInvoice
	Method     ExtractionMethod
	Confidence float64
	Warnings   []string
	Error      error
}

// Pipeline processes invoices through extraction and parsing
type Pipeline struct {
	registry  *parser.Registry
	extractor *extract.Extractor
	llm       *llm.Extractor
	logger    *slog.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithLLMExtractor enables the LLM fallback and image processing
func WithLLMExtractor(extractor *llm.Extractor) PipelineOption {
	return func(p *Pipeline) {
		p.llm = extractor
	}
}

// WithExtractor replaces the page extraction layer
func WithExtractor(extractor *extract.Extractor) PipelineOption {
	return func(p *Pipeline) {
		p.extractor = extractor
	}
}

// WithRegistry replaces the layout adapter registry
func WithRegistry(registry *parser.Registry) PipelineOption {
	return func(p *Pipeline) {
		p.registry = registry
	}
}

// WithLogger replaces the default logger
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline with default components
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry:  parser.NewRegistry(),
		extractor: extract.NewExtractor(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessFile reads and processes a document from disk
func (p *Pipeline) ProcessFile(ctx context.Context, path string) *Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Result{Error: fmt.Errorf("reading %s: %w", path, err)}
	}

	return p.ProcessBytes(ctx, data)
}

// ProcessBytes detects the format of data and routes it to the right path
func (p *Pipeline) ProcessBytes(ctx context.Context, data []byte) *Result {
	switch DetectFormat(data) {
	case FormatPDF:
		return p.ProcessPDF(ctx, data)
	case FormatText:
		return p.ProcessText(ctx, string(data))
	case FormatImage:
		return p.ProcessImage(ctx, data, mimeForImage(data))
	default:
		return &Result{Error: fmt.Errorf("unsupported document format")}
	}
}

// ProcessPDF extracts page text from a PDF document and parses it
func (p *Pipeline) ProcessPDF(ctx context.Context, data []byte) *Result {
	pages, err := p.extractor.ExtractBytes(ctx, data)
	if err != nil {
		return &Result{Error: err}
	}
	return p.ProcessPages(ctx, pages)
}

// ProcessText parses pre-extracted plain text, one page per form feed
func (p *Pipeline) ProcessText(ctx context.Context, text string) *Result {
	return p.ProcessPages(ctx, PagesFromText(text))
}

// PageCount reports the page count of a document without parsing it, or
// zero when the count cannot be determined.
func (p *Pipeline) PageCount(data []byte) int {
	switch DetectFormat(data) {
	case FormatPDF:
		n, err := p.extractor.PageCount(data)
		if err != nil {
			return 0
		}
		return n
	case FormatText:
		return len(PagesFromText(string(data)))
	case FormatImage:
		return 1
	default:
		return 0
	}
}

// ProcessPages parses already-extracted pages. Deterministic adapters run
// first; the LLM fallback only engages when they error out or find no line
// items, and a failed fallback never hides the deterministic outcome.
func (p *Pipeline) ProcessPages(ctx context.Context, pages []model.RawPage) *Result {
	deterministic := p.processDeterministic(ctx, pages)
	if deterministic.Error == nil && len(deterministic.Invoice.Items) > 0 {
		return deterministic
	}

	if p.llm == nil {
		return deterministic
	}

	reason := "no line items"
	if deterministic.Error != nil {
		reason = deterministic.Error.Error()
	}
	p.logger.Info("pipeline.fallback.llm", "reason", reason)

	llmResult := p.processLLMText(ctx, pages)
	if llmResult.Error != nil {
		p.logger.Warn("pipeline.fallback.failed", "err", llmResult.Error)
		return deterministic
	}

	return llmResult
}

// ProcessImage extracts an invoice from a scanned page via the vision model
func (p *Pipeline) ProcessImage(ctx context.Context, imageData []byte, mimeType string) *Result {
	if p.llm == nil {
		return &Result{Error: fmt.Errorf("LLM extractor not configured")}
	}

	inv, err := p.llm.ExtractFromImage(ctx, imageData, mimeType)
	if err != nil {
		return &Result{Error: err}
	}

	return &Result{
		Invoice:    inv,
		Method:     MethodLLMVision,
		Confidence: ConfidenceLLMVision,
		Warnings:   warningStrings(inv),
	}
}

func (p *Pipeline) processDeterministic(ctx context.Context, pages []model.RawPage) *Result {
	adapter, err := p.registry.Detect(pages)
	if err != nil {
		return &Result{Error: err}
	}

	inv, err := adapter.Parse(ctx, pages)
	if err != nil {
		return &Result{Error: err}
	}

	// Table grids supplement header fields the running-text parse left
	// empty. Cells win over text inside the grid resolver itself.
	if adapter.Layout() == model.LayoutTextFlow && hasGrids(pages) {
		grid.FillHeader(inv.Header, pages)
	}

	method, confidence := methodForLayout(adapter.Layout())
	return &Result{
		Invoice:    inv,
		Method:     method,
		Confidence: confidence,
		Warnings:   warningStrings(inv),
	}
}

func (p *Pipeline) processLLMText(ctx context.Context, pages []model.RawPage) *Result {
	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}

	inv, err := p.llm.ExtractFromText(ctx, strings.Join(texts, "\f"))
	if err != nil {
		return &Result{Error: err}
	}

	return &Result{
		Invoice:    inv,
		Method:     MethodLLMText,
		Confidence: ConfidenceLLMText,
		Warnings:   warningStrings(inv),
	}
}

func methodForLayout(layout model.Layout) (ExtractionMethod, float64) {
	if layout == model.LayoutTableGrid {
		return MethodTableGrid, ConfidenceTableGrid
	}
	return MethodTextFlow, ConfidenceTextFlow
}

func warningStrings(inv *model.ParsedInvoice) []string {
	if len(inv.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(inv.Warnings))
	for i, w := range inv.Warnings {
		out[i] = w.String()
	}
	return out
}

func hasGrids(pages []model.RawPage) bool {
	for _, page := range pages {
		if len(page.TableGrids) > 0 {
			return true
		}
	}
	return false
}

// PagesFromText splits plain text input into pages on form feeds. A trailing
// form feed does not produce an empty final page.
func PagesFromText(text string) []model.RawPage {
	parts := strings.Split(text, "\f")
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]model.RawPage, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, model.RawPage{PageIndex: i, Text: part})
	}
	return pages
}
