// Package grid parses the tabular layout of wholesale shipment invoices,
// where header fields arrive as detected table cells instead of positional
// running text. Values are carried exactly as the cells print them; the
// only coercions are numeric parsing and the ISO date rendering.
package grid

import (
	"context"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/parser/flow"
)

// Adapter parses the table-grid layout.
type Adapter struct{}

// NewAdapter creates a table-grid adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Layout returns the layout family
func (a *Adapter) Layout() model.Layout {
	return model.LayoutTableGrid
}

// CanParse returns true if any page carries a detected table grid
func (a *Adapter) CanParse(pages []model.RawPage) bool {
	for _, p := range pages {
		if len(p.TableGrids) > 0 {
			return true
		}
	}
	return false
}

// Parse resolves the header from table cells with text-regex fallbacks,
// then walks every page's text for line items. The tabular layout has no
// totals block, so the summary stays absent.
func (a *Adapter) Parse(ctx context.Context, pages []model.RawPage) (*model.ParsedInvoice, error) {
	if len(pages) == 0 {
		return nil, model.NewParseError(model.LayoutTableGrid, "pages", "document has no pages", nil)
	}

	inv := &model.ParsedInvoice{}
	header := resolveGridHeader(pages)

	// The tabular layout prints no currency cell; USD is the only currency
	// observed in these documents. An absent date keeps the sentinel so the
	// field always carries a value.
	header.Currency = "USD"
	if header.TransactionDate == "" {
		header.TransactionDate = model.SentinelDate
	}

	for _, page := range pages {
		flow.WalkPageItems(page, header, inv)
	}

	inv.Header = header
	if len(inv.Items) == 0 {
		inv.AddWarning(model.CodeFieldAbsent, -1, "line_items", "no line item anchors matched on any page")
	}
	return inv, nil
}

// hasAnyPrefix reports whether s starts with any of the given prefixes.
func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
