package invoicelib

import (
	"context"
	"io"

	"github.com/rezonia/invoice-extractor/internal/extract"
	"github.com/rezonia/invoice-extractor/internal/llm"
	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/processor"
)

// Processor implements Pipeline on top of the internal extraction pipeline
type Processor struct {
	pipeline *processor.Pipeline
	options  PipelineOptions
}

// NewProcessor creates a new invoice processor with the given options
func NewProcessor(opts PipelineOptions) *Processor {
	var llmExtractor *llm.Extractor
	if opts.EnableLLM && opts.LLMAPIKey != "" {
		// Build client options
		var clientOpts []llm.ClientOption
		if opts.LLMBaseURL != "" {
			clientOpts = append(clientOpts, llm.WithBaseURL(opts.LLMBaseURL))
		}

		client := llm.NewClient(opts.LLMAPIKey, clientOpts...)

		// Build extractor options
		var extractorOpts []llm.ExtractorOption
		if opts.LLMModel != "" {
			extractorOpts = append(extractorOpts, llm.WithTextModel(opts.LLMModel))
		}
		if opts.LLMVisionModel != "" {
			extractorOpts = append(extractorOpts, llm.WithVisionModel(opts.LLMVisionModel))
		}

		llmExtractor = llm.NewExtractor(client, extractorOpts...)
	}

	pipelineOpts := []processor.PipelineOption{
		processor.WithLLMExtractor(llmExtractor),
	}
	if !opts.ValidatePDF {
		pipelineOpts = append(pipelineOpts,
			processor.WithExtractor(extract.NewExtractor(extract.WithoutValidation())))
	}

	return &Processor{
		pipeline: processor.NewPipeline(pipelineOpts...),
		options:  opts,
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultPipelineOptions())
}

// Process detects the input format and returns the extraction result
func (p *Processor) Process(ctx context.Context, r io.Reader) (*ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.LayoutUnknown, "", "failed to read input", err)
	}

	return p.wrap(p.pipeline.ProcessBytes(ctx, data), p.pipeline.PageCount(data))
}

// ProcessPDF processes PDF input directly
func (p *Processor) ProcessPDF(ctx context.Context, r io.Reader) (*ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.LayoutUnknown, "", "failed to read input", err)
	}

	return p.wrap(p.pipeline.ProcessPDF(ctx, data), p.pipeline.PageCount(data))
}

// ProcessText processes pre-extracted page text, one page per form feed
func (p *Processor) ProcessText(ctx context.Context, text string) (*ExtractionResult, error) {
	pages := processor.PagesFromText(text)
	return p.wrap(p.pipeline.ProcessPages(ctx, pages), len(pages))
}

// ProcessPages processes already-extracted pages directly
func (p *Processor) ProcessPages(ctx context.Context, pages []RawPage) (*ExtractionResult, error) {
	return p.wrap(p.pipeline.ProcessPages(ctx, pages), len(pages))
}

// ProcessImage processes a scanned page through the vision model
func (p *Processor) ProcessImage(ctx context.Context, imageData []byte, mimeType string) (*ExtractionResult, error) {
	return p.wrap(p.pipeline.ProcessImage(ctx, imageData, mimeType), 1)
}

// ProcessBatch processes multiple inputs concurrently
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*ExtractionResult, error) {
	results := make([]*ExtractionResult, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			result, err := p.Process(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	// Wait for all goroutines
	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}

// wrap converts an internal pipeline result into the public form
func (p *Processor) wrap(result *processor.Result, pages int) (*ExtractionResult, error) {
	if result.Error != nil {
		return nil, result.Error
	}

	return &ExtractionResult{
		Invoice:     result.Invoice,
		Confidence:  result.Confidence,
		Method:      string(result.Method),
		Pages:       pages,
		Warnings:    result.Warnings,
		NeedsReview: result.Confidence < p.options.ReviewThreshold,
	}, nil
}
