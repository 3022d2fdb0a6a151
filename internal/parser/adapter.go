package parser

import (
	"context"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/parser/flow"
	"github.com/rezonia/invoice-extractor/internal/parser/grid"
)

// Adapter parses layout-specific page content into a ParsedInvoice
type Adapter interface {
	// Parse parses extracted pages into a ParsedInvoice
	Parse(ctx context.Context, pages []model.RawPage) (*model.ParsedInvoice, error)

	// CanParse returns true if adapter can handle these pages
	CanParse(pages []model.RawPage) bool

	// Layout returns the layout family
	Layout() model.Layout
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with all adapters
// Order matters: more specific adapters should come before generic ones
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			flow.NewAdapter(), // " Invoice #" marker in running text - primary
			grid.NewAdapter(), // table grids from the extractor - fallback
		},
	}
}

// Detect identifies layout from page content
func (r *Registry) Detect(pages []model.RawPage) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(pages) {
			return a, nil
		}
	}
	return nil, model.NewParseError(model.LayoutUnknown, "root", "unknown page layout, no matching adapter found", nil)
}

// Parse parses pages using appropriate adapter
func (r *Registry) Parse(ctx context.Context, pages []model.RawPage) (*model.ParsedInvoice, error) {
	adapter, err := r.Detect(pages)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, pages)
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Add at the beginning so custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}

// GetAdapter returns adapter for a specific layout
func (r *Registry) GetAdapter(layout model.Layout) Adapter {
	for _, a := range r.adapters {
		if a.Layout() == layout {
			return a
		}
	}
	return nil
}
