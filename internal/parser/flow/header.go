package flow

import (
	"strconv"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/model"
)

// resolveHeader builds the document header from the opening page. Entity,
// date, DUN and invoice number come from the banner text; the address and
// commercial-terms fields only exist when the page carries the currency
// marker. Every field defaults independently. A missing invoice number is
// the one failure that cuts resolution short, leaving a partial header.
func resolveHeader(page model.RawPage, inv *model.ParsedInvoice) *model.InvoiceHeader {
	h := &model.InvoiceHeader{}
	banner, remainder, _ := strings.Cut(page.Text, invoiceMarker)

	entityPart, invoicePart, _ := strings.Cut(banner, dateMarker)
	h.ReportEntity = reportEntity(entityPart)
	if d, ok := parseTransactionDate(entityPart); ok {
		h.TransactionDate = d
	}
	if m := reDun.FindStringSubmatch(banner); m != nil {
		h.DunID = m[1]
	}

	id, ok := findPattern(reNineDigits, invoicePart)
	if !ok {
		inv.AddWarning(model.CodeFieldMalformed, page.PageIndex, "invoice_id",
			"mandatory field did not match a 9-digit number, keeping partial header")
		return h
	}
	h.InvoiceID = id

	addressBlock, termsBlock, ok := strings.Cut(remainder, currencyMarker)
	if !ok {
		return h
	}
	resolveAddresses(h, addressBlock)
	resolveTerms(h, strings.Split(termsBlock, "\n"))
	return h
}

// reportEntity drops the 10-character date suffix and the first line of the
// entity block, then joins the remaining lines.
func reportEntity(text string) string {
	if len(text) < 10 {
		return ""
	}
	lines := strings.Split(text[:len(text)-10], "\n")
	return strings.Join(lines[1:], "")
}

// Address lines sit at fixed positions in the block above the currency
// marker: bill-to on lines 1-3, sold-to on 4-6, ship-to on 7-9, with the
// currency code on the final line. The next section's label bleeds into the
// last line of each address and is stripped after joining.
func resolveAddresses(h *model.InvoiceHeader, block string) {
	lines := strings.Split(block, "\n")
	h.InvoiceTo = strings.ReplaceAll(strings.TrimSpace(joinRange(lines, 1, 4)), "SOLD TO:", "")
	h.SoldTo = strings.ReplaceAll(strings.TrimSpace(joinRange(lines, 4, 7)), "SHIP TO:", "")
	h.ShipTo = strings.TrimSpace(joinRange(lines, 7, 10))
	if c, ok := findPattern(reCurrency, lines[len(lines)-1]); ok {
		h.Currency = c
	}
}

// Commercial-terms fields live at fixed line offsets below the currency
// marker. The layout has no column alignment, so each extraction defaults
// alone instead of aborting the rest.
func resolveTerms(h *model.InvoiceHeader, blocks []string) {
	if b, ok := blockAt(blocks, 0); ok {
		if id, ok := findPattern(reEightDigits, b); ok {
			h.CustomerID = id
		}
		h.Terms = strings.TrimSpace(beforeLabel(b, "Terms"))
	}
	if b, ok := blockAt(blocks, 2); ok {
		if id, ok := findPattern(reNineDigits, b); ok {
			h.SalesOrderID = id
		}
	}
	if b, ok := blockAt(blocks, 3); ok {
		base := strings.TrimSpace(beforeLabel(b, "Customer PO"))
		parts := strings.Split(base, "No. of Cartons")
		h.CustomerPO = strings.TrimSpace(parts[len(parts)-1])
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			h.CartonsCount = n
		}
	}
	if b, ok := blockAt(blocks, 4); ok {
		tail := strings.TrimSpace(afterLastLabel(b, "Net Weight :"))
		if w, ok := findPattern(reWeight, tail); ok {
			h.CartonsNetWeight = decimal.FromStringOrZero(w)
			if u, ok := findPattern(reUnit, tail); ok {
				h.CartonsNetWeightUnit = u
			}
		}
	}
	// The gross weight prints before its label, unlike the net weight.
	if b, ok := blockAt(blocks, 5); ok {
		head := strings.TrimSpace(beforeLabel(b, "Gross Weight :"))
		if w, ok := findPattern(reWeight, head); ok {
			h.CartonsGrossWeight = decimal.FromStringOrZero(w)
			if u, ok := findPattern(reUnit, head); ok {
				h.CartonsGrossWeightUnit = u
			}
		}
	}
}
