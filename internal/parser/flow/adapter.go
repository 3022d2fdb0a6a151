// Package flow parses the positional text layout of wholesale shipment
// invoices: a repeated " Invoice #" banner, an opening-page header
// terminated by the currency marker, anchor-delimited line items with
// variable-length trim descriptions, and a totals block on the
// remit-payment page.
package flow

import (
	"context"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// Adapter parses the text-flow layout.
type Adapter struct{}

// NewAdapter creates a text-flow adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Layout returns the layout family
func (a *Adapter) Layout() model.Layout {
	return model.LayoutTextFlow
}

// CanParse returns true if any page carries the invoice banner
func (a *Adapter) CanParse(pages []model.RawPage) bool {
	for _, p := range pages {
		if strings.Contains(p.Text, invoiceMarker) {
			return true
		}
	}
	return false
}

// Parse folds pages in order into one ParsedInvoice. The header resolves on
// the opening page and is carried read-only across the rest; a later page
// that cleanly re-matches the first-page markers fails the whole document,
// since header carry integrity is gone at that point.
func (a *Adapter) Parse(ctx context.Context, pages []model.RawPage) (*model.ParsedInvoice, error) {
	if len(pages) == 0 {
		return nil, model.NewParseError(model.LayoutTextFlow, "pages", "document has no pages", nil)
	}

	inv := &model.ParsedInvoice{}
	var header *model.InvoiceHeader

	for pos, page := range pages {
		cls := Classify(page.Text)
		role := cls.Role

		if pos > 0 && role == RoleFirst {
			if cls.HasLast {
				inv.AddWarning(model.CodeClassificationAmbiguous, page.PageIndex, "",
					"page matches first and last markers past the document start, treating as continuation")
				role = RoleContinuation
			} else {
				return nil, model.NewHeaderReappearedError(model.LayoutTextFlow, page.PageIndex)
			}
		}
		if role == RoleContinuation && !cls.HasBand {
			inv.AddWarning(model.CodeClassificationAmbiguous, page.PageIndex, "",
				"page matches no layout markers, treating as continuation")
		}

		// The opening page always resolves the header, even when its header
		// section is incomplete or missing.
		if pos == 0 {
			header = resolveHeader(page, inv)
		}

		walkItems(walkBlocks(page.Text), header, page.PageIndex, inv)

		// A single-page document classifies first and still carries the
		// totals block; a demoted ambiguous page does not close the
		// document.
		if role == RoleLast || (role == RoleFirst && cls.HasLast) {
			inv.Summary = resolveSummary(bandRemainder(page.Text), page.PageIndex, inv)
			break
		}
	}

	inv.Header = header
	if len(inv.Items) == 0 {
		inv.AddWarning(model.CodeFieldAbsent, -1, "line_items", "no line item anchors matched on any page")
	}
	return inv, nil
}
