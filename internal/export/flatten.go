// Package export renders parsed invoices into the downstream formats the
// review workflow consumes: a denormalized XLSX workbook, CSV with the same
// column set, the document-shaped JSON form and an XML interchange tree.
package export

import (
	"strconv"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// Columns is the flattened column order shared by every tabular writer.
// One row per line item; document-level fields repeat on every row.
var Columns = []string{
	"report_entity",
	"transaction_date",
	"invoice_id",
	"dun_id",
	"invoice_to",
	"sold_to",
	"ship_to",
	"currency",
	"customer_id",
	"sales_order_id",
	"customer_po",
	"terms",
	"cartons_count",
	"cartons_net_weight",
	"cartons_net_weight_unit",
	"cartons_gross_weight",
	"cartons_gross_weight_unit",
	"style_color",
	"style_color_descr",
	"size",
	"qty",
	"product_family",
	"country_of_origin",
	"rds_certified",
	"tariff_code",
	"delivery_id",
	"other_descr",
	"price",
	"ext_price",
	"total_units",
	"merchandise_total",
	"merchandise_total_unit",
	"freight_total",
	"freight_total_unit",
	"total_invoice",
	"total_invoice_unit",
}

// Row is one flattened line-item record in Columns order.
type Row []string

// Flatten denormalizes a parsed invoice into one row per line item. Money
// renders at two decimal places and weights at three, matching the source
// layout; a document without line items flattens to no rows.
func Flatten(inv *model.ParsedInvoice) []Row {
	if inv == nil {
		return nil
	}

	rows := make([]Row, 0, len(inv.Items))
	for i := range inv.Items {
		rows = append(rows, flattenItem(inv.Header, &inv.Items[i], inv.Summary))
	}
	return rows
}

func flattenItem(h *model.InvoiceHeader, item *model.LineItem, s *model.SummaryRecord) Row {
	row := make(Row, 0, len(Columns))

	if h == nil {
		h = &model.InvoiceHeader{}
	}
	row = append(row,
		h.ReportEntity,
		h.TransactionDate,
		h.InvoiceID,
		h.DunID,
		h.InvoiceTo,
		h.SoldTo,
		h.ShipTo,
		h.Currency,
		h.CustomerID,
		h.SalesOrderID,
		h.CustomerPO,
		h.Terms,
		strconv.Itoa(h.CartonsCount),
		h.CartonsNetWeight.StringFixed(3),
		h.CartonsNetWeightUnit,
		h.CartonsGrossWeight.StringFixed(3),
		h.CartonsGrossWeightUnit,
	)

	row = append(row,
		item.StyleColor,
		item.StyleColorDescr,
		item.Size,
		strconv.Itoa(item.Qty),
		item.ProductFamily,
		item.CountryOfOrigin,
		strconv.FormatBool(item.RDSCertified),
		item.TariffCode,
		item.DeliveryID,
		item.OtherDescr,
		item.Price.StringFixed(2),
		item.ExtPrice.StringFixed(2),
	)

	if s == nil {
		row = append(row, "", "", "", "", "", "", "")
		return row
	}
	row = append(row,
		strconv.Itoa(s.TotalUnits),
		s.MerchandiseTotal.StringFixed(2),
		s.MerchandiseTotalUnit,
		s.FreightTotal.StringFixed(2),
		s.FreightTotalUnit,
		s.TotalInvoice.StringFixed(2),
		s.TotalInvoiceUnit,
	)
	return row
}
