package grid

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rezonia/invoice-extractor/internal/decimal"
	"github.com/rezonia/invoice-extractor/internal/model"
)

// Text-regex fallbacks for header fields the table detection missed. The
// tabular layout prints weights in pounds in the running text and no unit
// in the cells.
var (
	reCustomerNo   = regexp.MustCompile(`(?i)Customer\s*#\s*(\d+)`)
	reSalesOrderNo = regexp.MustCompile(`(?i)Sales\s*Order\s*#\s*(\d+)`)
	reCustomerPO   = regexp.MustCompile(`(?i)Customer\s*PO\s*([A-Z0-9]+)`)
	reCartonsCount = regexp.MustCompile(`(?i)No\.\s*of\s*Cartons\s*(\d+)`)
	reGrossWeight  = regexp.MustCompile(`(?is)Gross\s*Weight\s*:?.*?(\d+\.?\d*)\s*LB`)
	reNetWeight    = regexp.MustCompile(`(?is)Net\s*Weight\s*:?.*?(\d+\.?\d*)\s*LB`)
	reHeaderDate   = regexp.MustCompile(`(?i)Date\s+(\d{2}/\d{2}/\d{4})`)
	reDunNo        = regexp.MustCompile(`(?i)DUN#(\d+)`)
	reNumber       = regexp.MustCompile(`\d+`)
	reDecimalNum   = regexp.MustCompile(`\d+\.?\d*`)
)

// resolveGridHeader scans every grid on every page for labeled header
// cells, then fills the gaps from the flattened page text. Later grids win
// over earlier ones; cells win over text.
func resolveGridHeader(pages []model.RawPage) *model.InvoiceHeader {
	h := &model.InvoiceHeader{}
	var texts []string
	for _, p := range pages {
		texts = append(texts, p.Text)
		for _, g := range p.TableGrids {
			headerRowFields(h, g)
			cartonFields(h, g)
		}
	}
	fullText := strings.Join(texts, "\n")

	if h.CustomerID == "" {
		if m := reCustomerNo.FindStringSubmatch(fullText); m != nil {
			h.CustomerID = m[1]
		}
	}
	if h.SalesOrderID == "" {
		if m := reSalesOrderNo.FindStringSubmatch(fullText); m != nil {
			h.SalesOrderID = m[1]
		}
	}
	if h.CustomerPO == "" {
		if m := reCustomerPO.FindStringSubmatch(fullText); m != nil {
			h.CustomerPO = m[1]
		}
	}
	if h.CartonsCount == 0 {
		if m := reCartonsCount.FindStringSubmatch(fullText); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				h.CartonsCount = n
			}
		}
	}
	if h.CartonsGrossWeight.IsZero() {
		if m := reGrossWeight.FindStringSubmatch(fullText); m != nil {
			h.CartonsGrossWeight = decimal.FromStringOrZero(m[1])
			h.CartonsGrossWeightUnit = "LB"
		}
	}
	if h.CartonsNetWeight.IsZero() {
		if m := reNetWeight.FindStringSubmatch(fullText); m != nil {
			h.CartonsNetWeight = decimal.FromStringOrZero(m[1])
			h.CartonsNetWeightUnit = "LB"
		}
	}

	if m := reHeaderDate.FindStringSubmatch(fullText); m != nil {
		h.TransactionDate = isoDate(m[1])
	}
	if m := reDunNo.FindStringSubmatch(fullText); m != nil {
		h.DunID = m[1]
	}

	resolveGridAddresses(h, fullText)
	return h
}

// headerRowFields maps a label-row/value-row grid onto header fields: the
// first row carries the labels, the second the values in the same columns.
func headerRowFields(h *model.InvoiceHeader, grid [][]string) {
	if len(grid) < 2 {
		return
	}
	row := grid[1]
	for idx, cell := range grid[0] {
		if idx >= len(row) {
			continue
		}
		label := strings.ToUpper(strings.TrimSpace(cell))
		value := strings.TrimSpace(row[idx])
		switch {
		case strings.Contains(label, "CUSTOMER #"):
			h.CustomerID = value
		case strings.Contains(label, "SALES ORDER #"):
			h.SalesOrderID = value
		case strings.Contains(label, "CUSTOMER PO"):
			h.CustomerPO = value
		}
	}
}

// cartonFields scans all cells for the carton labels, whose values print
// either in the cell to the right or in the first cell of the next row.
func cartonFields(h *model.InvoiceHeader, grid [][]string) {
	for ri, row := range grid {
		for ci, cell := range row {
			label := strings.ToUpper(strings.TrimSpace(cell))
			value := cellAfter(grid, ri, ci)
			if value == "" {
				continue
			}
			clean := strings.ReplaceAll(value, ",", "")
			switch {
			case strings.Contains(label, "NO. OF CARTONS"):
				if m := reNumber.FindString(clean); m != "" {
					if n, err := strconv.Atoi(m); err == nil {
						h.CartonsCount = n
					}
				}
			case strings.Contains(label, "GROSS WEIGHT"):
				if m := reDecimalNum.FindString(clean); m != "" {
					h.CartonsGrossWeight = decimal.FromStringOrZero(m)
				}
			case strings.Contains(label, "NET WEIGHT"):
				if m := reDecimalNum.FindString(clean); m != "" {
					h.CartonsNetWeight = decimal.FromStringOrZero(m)
				}
			}
		}
	}
}

// cellAfter returns the cell right of (ri, ci), falling back to the first
// cell of the next row when the label sits at the end of its row.
func cellAfter(grid [][]string, ri, ci int) string {
	row := grid[ri]
	if ci+1 < len(row) {
		return strings.TrimSpace(row[ci+1])
	}
	if ri+1 < len(grid) && len(grid[ri+1]) > 0 {
		return strings.TrimSpace(grid[ri+1][0])
	}
	return ""
}

// Address blocks in the tabular layout are labeled line runs, not fixed
// positions: each "... TO:" label opens a collector and any commercial
// label closes it. Lines join with single spaces.
func resolveGridAddresses(h *model.InvoiceHeader, fullText string) {
	var invoiceTo, soldTo, shipTo []string
	var current *[]string
	for _, line := range strings.Split(fullText, "\n") {
		l := strings.TrimSpace(line)
		upper := strings.ToUpper(l)
		switch {
		case strings.HasPrefix(upper, "INVOICE TO:"):
			current = &invoiceTo
		case strings.HasPrefix(upper, "SOLD TO:"):
			current = &soldTo
		case strings.HasPrefix(upper, "SHIP TO:"):
			current = &shipTo
		case hasAnyPrefix(upper, "CURRENCY", "CUSTOMER", "TERMS", "SALES ORDER", "STORE #", "DELIVERY"):
			current = nil
		default:
			if current != nil && l != "" {
				*current = append(*current, l)
			}
		}
	}
	if len(invoiceTo) > 0 {
		h.InvoiceTo = strings.Join(invoiceTo, " ")
	}
	if len(soldTo) > 0 {
		h.SoldTo = strings.Join(soldTo, " ")
	}
	if len(shipTo) > 0 {
		h.ShipTo = strings.Join(shipTo, " ")
	}
}

// isoDate renders mm/dd/yyyy as ISO, collapsing calendar-invalid matches to
// the sentinel date.
func isoDate(raw string) string {
	t, err := time.Parse("01/02/2006", raw)
	if err != nil {
		return model.SentinelDate
	}
	return t.Format("2006-01-02")
}

// FillHeader fills zero-valued header fields from table-grid data. Text-flow
// documents sometimes carry their commercial fields only in detected tables;
// the caller opts in by attaching grids to its pages. Fields the tabular
// layout never prints, like the invoice number, are left alone.
func FillHeader(h *model.InvoiceHeader, pages []model.RawPage) {
	if h == nil {
		return
	}
	gh := resolveGridHeader(pages)
	if h.TransactionDate == "" {
		h.TransactionDate = gh.TransactionDate
	}
	if h.DunID == "" {
		h.DunID = gh.DunID
	}
	if h.InvoiceTo == "" {
		h.InvoiceTo = gh.InvoiceTo
	}
	if h.SoldTo == "" {
		h.SoldTo = gh.SoldTo
	}
	if h.ShipTo == "" {
		h.ShipTo = gh.ShipTo
	}
	if h.CustomerID == "" {
		h.CustomerID = gh.CustomerID
	}
	if h.SalesOrderID == "" {
		h.SalesOrderID = gh.SalesOrderID
	}
	if h.CustomerPO == "" {
		h.CustomerPO = gh.CustomerPO
	}
	if h.CartonsCount == 0 {
		h.CartonsCount = gh.CartonsCount
	}
	if h.CartonsNetWeight.IsZero() && !gh.CartonsNetWeight.IsZero() {
		h.CartonsNetWeight = gh.CartonsNetWeight
		h.CartonsNetWeightUnit = gh.CartonsNetWeightUnit
	}
	if h.CartonsGrossWeight.IsZero() && !gh.CartonsGrossWeight.IsZero() {
		h.CartonsGrossWeight = gh.CartonsGrossWeight
		h.CartonsGrossWeightUnit = gh.CartonsGrossWeightUnit
	}
}
