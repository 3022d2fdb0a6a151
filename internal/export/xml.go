package export

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// XML renders the document form as an interchange tree: header and summary
// once, one Item element per line. Empty fields still emit their element so
// consumers see a stable shape.
func (e *Exporter) XML(inv *model.ParsedInvoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("nil invoice")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("Invoice")

	h := inv.Header
	if h == nil {
		h = &model.InvoiceHeader{}
	}
	header := root.CreateElement("Header")
	setChild(header, "ReportEntity", h.ReportEntity)
	setChild(header, "TransactionDate", h.TransactionDate)
	setChild(header, "InvoiceID", h.InvoiceID)
	setChild(header, "DunID", h.DunID)
	setChild(header, "InvoiceTo", h.InvoiceTo)
	setChild(header, "SoldTo", h.SoldTo)
	setChild(header, "ShipTo", h.ShipTo)
	setChild(header, "Currency", h.Currency)
	setChild(header, "CustomerID", h.CustomerID)
	setChild(header, "SalesOrderID", h.SalesOrderID)
	setChild(header, "CustomerPO", h.CustomerPO)
	setChild(header, "Terms", h.Terms)

	cartons := header.CreateElement("Cartons")
	setChild(cartons, "Count", strconv.Itoa(h.CartonsCount))
	net := cartons.CreateElement("NetWeight")
	net.SetText(h.CartonsNetWeight.StringFixed(3))
	net.CreateAttr("unit", h.CartonsNetWeightUnit)
	gross := cartons.CreateElement("GrossWeight")
	gross.SetText(h.CartonsGrossWeight.StringFixed(3))
	gross.CreateAttr("unit", h.CartonsGrossWeightUnit)

	items := root.CreateElement("Items")
	for i := range inv.Items {
		item := &inv.Items[i]
		el := items.CreateElement("Item")
		setChild(el, "StyleColor", item.StyleColor)
		setChild(el, "StyleColorDescr", item.StyleColorDescr)
		setChild(el, "Size", item.Size)
		setChild(el, "Qty", strconv.Itoa(item.Qty))
		setChild(el, "ProductFamily", item.ProductFamily)
		setChild(el, "CountryOfOrigin", item.CountryOfOrigin)
		setChild(el, "RDSCertified", strconv.FormatBool(item.RDSCertified))
		setChild(el, "TariffCode", item.TariffCode)
		setChild(el, "DeliveryID", item.DeliveryID)
		setChild(el, "OtherDescr", item.OtherDescr)
		setChild(el, "Price", item.Price.StringFixed(2))
		setChild(el, "ExtPrice", item.ExtPrice.StringFixed(2))
	}

	if s := inv.Summary; s != nil {
		summary := root.CreateElement("Summary")
		setChild(summary, "TotalUnits", strconv.Itoa(s.TotalUnits))
		merch := summary.CreateElement("MerchandiseTotal")
		merch.SetText(s.MerchandiseTotal.StringFixed(2))
		merch.CreateAttr("unit", s.MerchandiseTotalUnit)
		freight := summary.CreateElement("FreightTotal")
		freight.SetText(s.FreightTotal.StringFixed(2))
		freight.CreateAttr("unit", s.FreightTotalUnit)
		total := summary.CreateElement("TotalInvoice")
		total.SetText(s.TotalInvoice.StringFixed(2))
		total.CreateAttr("unit", s.TotalInvoiceUnit)
	}

	if len(inv.Warnings) > 0 {
		warnings := root.CreateElement("Warnings")
		for _, w := range inv.Warnings {
			setChild(warnings, "Warning", w.String())
		}
	}

	doc.Indent(2)
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xml write: %w", err)
	}

	e.logger.Info("export.xml.ok", "items", len(inv.Items))
	return data, nil
}

func setChild(parent *etree.Element, name, value string) {
	parent.CreateElement(name).SetText(value)
}
