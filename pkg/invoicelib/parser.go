package invoicelib

import (
	"context"
	"io"

	"github.com/rezonia/invoice-extractor/internal/llm"
	"github.com/rezonia/invoice-extractor/internal/model"
)

// Parser parses layout-specific page content into an invoice
type Parser interface {
	// Parse parses extracted pages into a ParsedInvoice
	Parse(ctx context.Context, pages []model.RawPage) (*model.ParsedInvoice, error)

	// CanParse returns true if the parser can handle these pages
	CanParse(pages []model.RawPage) bool

	// Layout returns the layout family
	Layout() model.Layout
}

// Extractor extracts structured invoices from unstructured sources
type Extractor interface {
	// ExtractFromText extracts invoice data from page text using an LLM
	ExtractFromText(ctx context.Context, text string) (*model.ParsedInvoice, error)

	// ExtractFromImage extracts invoice data from a scanned page using a vision model
	ExtractFromImage(ctx context.Context, imageData []byte, mimeType string) (*model.ParsedInvoice, error)
}

// ExtractionResult represents an extraction outcome with its metadata
type ExtractionResult struct {
	Invoice     *model.ParsedInvoice
	Confidence  float64
	Method      string
	Pages       int
	Warnings    []string
	NeedsReview bool
}

// Pipeline processes invoice documents through the extraction chain
type Pipeline interface {
	// Process processes input and returns the extraction result
	Process(ctx context.Context, r io.Reader) (*ExtractionResult, error)

	// ProcessBatch processes multiple inputs concurrently
	ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*ExtractionResult, error)
}

// PipelineOptions configures pipeline behavior
type PipelineOptions struct {
	// Thresholds
	ReviewThreshold float64 // Below this, flag for review (default: 0.75)

	// LLM Configuration
	LLMAPIKey      string // OpenRouter or OpenAI-compatible API key
	LLMBaseURL     string // Base URL (default: OpenRouter)
	LLMModel       string // Text extraction model
	LLMVisionModel string // Vision/image extraction model

	// Feature flags
	EnableLLM   bool // LLM fallback for pages the layout adapters cannot read
	ValidatePDF bool // Structural PDF validation before extraction
}

// DefaultPipelineOptions returns default pipeline options. Deterministic
// parses score 0.9 or above, so the default review threshold flags only
// vision extractions.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		ReviewThreshold: 0.75,
		EnableLLM:       true,
		ValidatePDF:     true,
		LLMBaseURL:      llm.DefaultBaseURL,
		LLMModel:        llm.ModelClaude35Sonnet,
		LLMVisionModel:  llm.ModelClaude35Sonnet,
	}
}
