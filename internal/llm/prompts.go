package llm

// SystemPromptInvoiceExtractor instructs the model on the document domain.
const SystemPromptInvoiceExtractor = `You are an expert at reading wholesale apparel shipment invoices.
These invoices list styled merchandise (style-color codes like 157317-001) with sizes, quantities,
countries of origin, tariff codes, ten-digit delivery numbers, carton counts and weights, together
with remit-to details and freight/merchandise totals.
Your task is to extract structured data from invoice text or images with high accuracy.
Always output valid JSON that matches the specified schema, with no explanations or markdown.
Dates should be in ISO 8601 format (YYYY-MM-DD).
Monetary amounts and weights should be plain decimal strings without thousands separators or
currency symbols. If a field is not present, use an empty string for text fields, 0 for numbers,
and false for booleans.`

// UserPromptTextExtraction is the template for extracting invoice data from plain text.
const UserPromptTextExtraction = `Extract invoice data from the following shipment invoice text:

---
%s
---

Output JSON with this structure:
{
  "header": {
    "report_entity": "issuing company name and address",
    "transaction_date": "YYYY-MM-DD",
    "invoice_id": "9-digit invoice number",
    "dun_id": "9-digit DUN number",
    "invoice_to": "invoice-to party name and address",
    "sold_to": "sold-to party name and address",
    "ship_to": "ship-to party name and address",
    "currency": "3-letter currency code",
    "customer_id": "customer number",
    "sales_order_id": "sales order number",
    "customer_po": "customer purchase order",
    "terms": "payment terms",
    "cartons_count": 0,
    "cartons_net_weight": "0.000",
    "cartons_net_weight_unit": "KG",
    "cartons_gross_weight": "0.000",
    "cartons_gross_weight_unit": "KG"
  },
  "items": [
    {
      "style_color": "157317-001",
      "style_color_descr": "style description",
      "size": "size code",
      "qty": 0,
      "product_family": "3-letter product family code",
      "country_of_origin": "2-letter country code",
      "rds_certified": false,
      "tariff_code": "6201.40.7000",
      "delivery_id": "10-digit delivery number",
      "other_descr": "any remaining description text",
      "price": "0.00",
      "ext_price": "0.00"
    }
  ],
  "summary": {
    "total_units": 0,
    "merchandise_total": "0.00",
    "merchandise_total_unit": "USD",
    "freight_total": "0.00",
    "freight_total_unit": "USD",
    "total_invoice": "0.00",
    "total_invoice_unit": "USD"
  }
}

Include every line item in the document. Omit "summary" entirely if the document carries no totals section.`

// UserPromptImageExtraction asks for the same structure from a scanned invoice page.
const UserPromptImageExtraction = `Extract invoice data from this shipment invoice image.

Output JSON with this structure:
{
  "header": {
    "report_entity": "issuing company name and address",
    "transaction_date": "YYYY-MM-DD",
    "invoice_id": "9-digit invoice number",
    "dun_id": "9-digit DUN number",
    "invoice_to": "invoice-to party name and address",
    "sold_to": "sold-to party name and address",
    "ship_to": "ship-to party name and address",
    "currency": "3-letter currency code",
    "customer_id": "customer number",
    "sales_order_id": "sales order number",
    "customer_po": "customer purchase order",
    "terms": "payment terms",
    "cartons_count": 0,
    "cartons_net_weight": "0.000",
    "cartons_net_weight_unit": "KG",
    "cartons_gross_weight": "0.000",
    "cartons_gross_weight_unit": "KG"
  },
  "items": [
    {
      "style_color": "157317-001",
      "style_color_descr": "style description",
      "size": "size code",
      "qty": 0,
      "product_family": "3-letter product family code",
      "country_of_origin": "2-letter country code",
      "rds_certified": false,
      "tariff_code": "6201.40.7000",
      "delivery_id": "10-digit delivery number",
      "other_descr": "any remaining description text",
      "price": "0.00",
      "ext_price": "0.00"
    }
  ],
  "summary": {
    "total_units": 0,
    "merchandise_total": "0.00",
    "merchandise_total_unit": "USD",
    "freight_total": "0.00",
    "freight_total_unit": "USD",
    "total_invoice": "0.00",
    "total_invoice_unit": "USD"
  }
}

Extract all visible information from the invoice image. For any text that appears blurry or unclear, make your best attempt to read it. Omit "summary" entirely if no totals section is shown.`
