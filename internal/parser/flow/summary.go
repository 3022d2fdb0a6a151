package flow

import (
	"strconv"
	"strings"

	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/model"
)

// resolveSummary extracts the totals block from a closing page's remainder
// text. The block sits between the "Total Units" marker and the returns
// notice and spans four fixed lines: units, merchandise, freight, invoice.
// On each line the value is the first token after its label, followed by
// the unit; no variable-offset search is needed here.
func resolveSummary(text string, pageIndex int, inv *model.ParsedInvoice) *model.SummaryRecord {
	head := beforeLabel(text, returnsTrailer)
	_, tail, ok := strings.Cut(head, totalUnitsMarker)
	if !ok {
		inv.AddWarning(model.CodeFieldAbsent, pageIndex, "summary",
			"totals block marker not found on closing page")
		return nil
	}

	lines := strings.Split(tail, "\n")
	s := &model.SummaryRecord{}
	if n, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
		s.TotalUnits = n
	}
	if v, u, ok := labeledTotal(lines, 1, "Merchandise Total"); ok {
		s.MerchandiseTotal = decimal.FromStringOrZero(v)
		s.MerchandiseTotalUnit = u
	}
	if v, u, ok := labeledTotal(lines, 2, "Freight"); ok {
		s.FreightTotal = decimal.FromStringOrZero(v)
		s.FreightTotalUnit = u
	}
	if v, u, ok := labeledTotal(lines, 3, "Invoice"); ok {
		s.TotalInvoice = decimal.FromStringOrZero(v)
		s.TotalInvoiceUnit = u
	}
	return s
}

// labeledTotal reads "<label> <value> <unit>" from a fixed line.
func labeledTotal(lines []string, idx int, label string) (value, unit string, ok bool) {
	if idx >= len(lines) {
		return "", "", false
	}
	_, rest, found := strings.Cut(lines[idx], label)
	if !found {
		return "", "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", "", false
	}
	value = fields[0]
	if len(fields) > 1 {
		unit = fields[1]
	}
	return value, unit, true
}
