// Package extract materializes parser input from PDF documents: one
// RawPage per document page, with text pulled through the MuPDF bindings.
// Table grids are left empty; callers running their own table detection
// attach grids before parsing.
package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// Extractor reads invoice PDFs into per-page raw text.
type Extractor struct {
	validate bool
	logger   *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithoutValidation skips the structural PDF validation pass. Extraction
// then relies on the renderer alone to reject broken files.
func WithoutValidation() Option {
	return func(e *Extractor) { e.validate = false }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates a PDF extractor
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{validate: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile reads every page of the PDF at path.
func (e *Extractor) ExtractFile(ctx context.Context, path string) ([]model.RawPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewExtractionError("pdf", "reading source file", err)
	}
	return e.ExtractBytes(ctx, data)
}

// ExtractBytes reads every page of an in-memory PDF. Structurally invalid
// documents fail before any page is rendered.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) ([]model.RawPage, error) {
	if e.validate {
		if err := api.Validate(bytes.NewReader(data), nil); err != nil {
			return nil, model.NewExtractionError("pdf", "document failed structural validation", err)
		}
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, model.NewExtractionError("pdf", "opening document", err)
	}
	defer doc.Close()

	pages := make([]model.RawPage, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(n)
		if err != nil {
			return nil, model.NewExtractionError("pdf", "extracting page text", err)
		}
		pages = append(pages, model.RawPage{PageIndex: n, Text: text})
	}

	e.logger.Info("extract.pages.ok", "pages", len(pages))
	return pages, nil
}

// PageCount reports the page count without rendering any page.
func (e *Extractor) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, model.NewExtractionError("pdf", "counting pages", err)
	}
	return n, nil
}
