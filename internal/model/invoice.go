// Package model defines the core types produced by parsing wholesale
// shipment invoices: one header, N line items and one summary per document.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SentinelDate marks a transaction date that was present but unparseable.
// Callers expect the field to always carry a value, so "unknown" is encoded
// as a fixed far-future date instead of an empty string.
const SentinelDate = "9999-12-31"

// Layout identifies the page layout an adapter handles
type Layout string

const (
	LayoutTextFlow  Layout = "text_flow"
	LayoutTableGrid Layout = "table_grid"
	LayoutUnknown   Layout = "unknown"
)

// RawPage is one page of input as delivered by the extraction layer.
// Text is mandatory; TableGrids is optional and only consulted as an
// alternative source for header key/value fields.
type RawPage struct {
	PageIndex  int
	Text       string
	TableGrids [][][]string
}

// InvoiceHeader holds the document-level fields resolved once on the first
// page and shared read-only with every line item of the same document.
type InvoiceHeader struct {
	ReportEntity    string `json:"report_entity"`
	TransactionDate string `json:"transaction_date"` // ISO date, SentinelDate, or empty when absent
	InvoiceID       string `json:"invoice_id"`       // 9 digits
	DunID           string `json:"dun_id,omitempty"` // 9 digits
	InvoiceTo       string `json:"invoice_to"`
	SoldTo          string `json:"sold_to"`
	ShipTo          string `json:"ship_to"`
	Currency        string `json:"currency"` // 3-letter code
	CustomerID      string `json:"customer_id"`
	SalesOrderID    string `json:"sales_order_id"`
	CustomerPO      string `json:"customer_po"`
	Terms           string `json:"terms"`

	CartonsCount           int             `json:"cartons_count"`
	CartonsNetWeight       decimal.Decimal `json:"cartons_net_weight"`
	CartonsNetWeightUnit   string          `json:"cartons_net_weight_unit"`
	CartonsGrossWeight     decimal.Decimal `json:"cartons_gross_weight"`
	CartonsGrossWeightUnit string          `json:"cartons_gross_weight_unit"`
}

// LineItem is one product line. Header points at the document's shared
// InvoiceHeader; items never copy it.
type LineItem struct {
	StyleColor      string `json:"style_color"` // NNNNNN-NNN
	StyleColorDescr string `json:"style_color_descr"`
	Size            string `json:"size"`
	Qty             int    `json:"qty"`
	ProductFamily   string `json:"product_family,omitempty"`    // 3 letters
	CountryOfOrigin string `json:"country_of_origin,omitempty"` // 2 letters
	RDSCertified    bool   `json:"rds_certified"`
	TariffCode      string `json:"tariff_code,omitempty"` // NNNN.NN.NNNN
	DeliveryID      string `json:"delivery_id,omitempty"` // 10 digits
	OtherDescr      string `json:"other_descr,omitempty"`

	Price    decimal.Decimal `json:"price"`
	ExtPrice decimal.Decimal `json:"ext_price"`

	Header *InvoiceHeader `json:"-"`
}

// SummaryRecord holds the totals block from the last page.
type SummaryRecord struct {
	TotalUnits           int             `json:"total_units"`
	MerchandiseTotal     decimal.Decimal `json:"merchandise_total"`
	MerchandiseTotalUnit string          `json:"merchandise_total_unit"`
	FreightTotal         decimal.Decimal `json:"freight_total"`
	FreightTotalUnit     string          `json:"freight_total_unit"`
	TotalInvoice         decimal.Decimal `json:"total_invoice"`
	TotalInvoiceUnit     string          `json:"total_invoice_unit"`
}

// ParsedInvoice is the result of parsing one document. Summary is non-nil
// if and only if a last page was observed. Warnings carries the per-document
// log of non-fatal parse anomalies.
type ParsedInvoice struct {
	Header   *InvoiceHeader `json:"header"`
	Items    []LineItem     `json:"items"`
	Summary  *SummaryRecord `json:"summary,omitempty"`
	Warnings []Warning      `json:"warnings,omitempty"`
}

// Warning records a non-fatal parse anomaly with its taxonomy code.
type Warning struct {
	Code      string `json:"code"`
	PageIndex int    `json:"page_index"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// String renders the warning. Document-level warnings carry a negative
// page index and omit the page.
func (w Warning) String() string {
	switch {
	case w.PageIndex < 0 && w.Field != "":
		return fmt.Sprintf("[%s] %s: %s", w.Code, w.Field, w.Message)
	case w.PageIndex < 0:
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	case w.Field != "":
		return fmt.Sprintf("[%s] page %d: %s: %s", w.Code, w.PageIndex, w.Field, w.Message)
	default:
		return fmt.Sprintf("[%s] page %d: %s", w.Code, w.PageIndex, w.Message)
	}
}

// AddWarning appends to the document's warning log.
func (inv *ParsedInvoice) AddWarning(code string, pageIndex int, field, message string) {
	inv.Warnings = append(inv.Warnings, Warning{Code: code, PageIndex: pageIndex, Field: field, Message: message})
}

// TotalQty sums the quantities of all line items.
func (inv *ParsedInvoice) TotalQty() int {
	total := 0
	for _, item := range inv.Items {
		total += item.Qty
	}
	return total
}

// SumExtPrice sums the extended prices of all line items.
func (inv *ParsedInvoice) SumExtPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.Items {
		total = total.Add(item.ExtPrice)
	}
	return total
}

// WarningStrings renders the warning log for transport surfaces.
func (inv *ParsedInvoice) WarningStrings() []string {
	if len(inv.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(inv.Warnings))
	for i, w := range inv.Warnings {
		out[i] = w.String()
	}
	return out
}
