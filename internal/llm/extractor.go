package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// LLMHeader mirrors the "header" object of the extraction schema.
type LLMHeader struct {
	ReportEntity    string `json:"report_entity"`
	TransactionDate string `json:"transaction_date"`
	InvoiceID       string `json:"invoice_id"`
	DunID           string `json:"dun_id"`
	InvoiceTo       string `json:"invoice_to"`
	SoldTo          string `json:"sold_to"`
	ShipTo          string `json:"ship_to"`
	Currency        string `json:"currency"`
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

// LLMItem mirrors one entry of the "items" array.
type LLMItem struct {
	StyleColor      string          `json:"style_color"`
	StyleColorDescr string          `json:"style_color_descr"`
	Size            string          `json:"size"`
	Qty             int             `json:"qty"`
	ProductFamily   string          `json:"product_family"`
	CountryOfOrigin string          `json:"country_of_origin"`
	RDSCertified    bool            `json:"rds_certified"`
	TariffCode      string          `json:"tariff_code"`
	DeliveryID      string          `json:"delivery_id"`
	OtherDescr      string          `json:"other_descr"`
	Price           decimal.Decimal `json:"price"`
	ExtPrice        decimal.Decimal `json:"ext_price"`
}

// LLMSummary mirrors the optional "summary" object.
type LLMSummary struct {
	TotalUnits           int             `json:"total_units"`
	MerchandiseTotal     decimal.Decimal `json:"merchandise_total"`
	MerchandiseTotalUnit string          `json:"merchandise_total_unit"`
	FreightTotal         decimal.Decimal `json:"freight_total"`
	FreightTotalUnit     string          `json:"freight_total_unit"`
	TotalInvoice         decimal.Decimal `json:"total_invoice"`
	TotalInvoiceUnit     string          `json:"total_invoice_unit"`
}

// LLMResponse is the JSON document the model is asked to return.
type LLMResponse struct {
	Header  LLMHeader   `json:"header"`
	Items   []LLMItem   `json:"items"`
	Summary *LLMSummary `json:"summary,omitempty"`
}

// ToParsedInvoice converts the response into the canonical invoice shape.
// Every item shares the single header instance.
func (r *LLMResponse) ToParsedInvoice() *model.ParsedInvoice {
	header := &model.InvoiceHeader{
		ReportEntity:    r.Header.ReportEntity,
		TransactionDate: normalizeDate(r.Header.TransactionDate),
		InvoiceID:       r.Header.InvoiceID,
		DunID:           r.Header.DunID,
		InvoiceTo:       r.Header.InvoiceTo,
		SoldTo:          r.Header.SoldTo,
		ShipTo:          r.Header.ShipTo,
		Currency:        r.Header.Currency,
		CustomerID:      r.Header.CustomerID,
		SalesOrderID:    r.Header.SalesOrderID,
		CustomerPO:      r.Header.CustomerPO,
		Terms:           r.Header.Terms,

		CartonsCount:           r.Header.CartonsCount,
		CartonsNetWeight:       r.Header.CartonsNetWeight,
		CartonsNetWeightUnit:   r.Header.CartonsNetWeightUnit,
		CartonsGrossWeight:     r.Header.CartonsGrossWeight,
		CartonsGrossWeightUnit: r.Header.CartonsGrossWeightUnit,
	}

	inv := &model.ParsedInvoice{
		Header: header,
		Items:  make([]model.LineItem, 0, len(r.Items)),
	}

	for _, it := range r.Items {
		// Drop padding entries that name no style-color.
		if it.StyleColor == "" {
			continue
		}
		inv.Items = append(inv.Items, model.LineItem{
			StyleColor:      it.StyleColor,
			StyleColorDescr: it.StyleColorDescr,
			Size:            it.Size,
			Qty:             it.Qty,
			ProductFamily:   it.ProductFamily,
			CountryOfOrigin: it.CountryOfOrigin,
			RDSCertified:    it.RDSCertified,
			TariffCode:      it.TariffCode,
			DeliveryID:      it.DeliveryID,
			OtherDescr:      it.OtherDescr,
			Price:           it.Price,
			ExtPrice:        it.ExtPrice,
			Header:          header,
		})
	}

	if r.Summary != nil {
		inv.Summary = &model.SummaryRecord{
			TotalUnits:           r.Summary.TotalUnits,
			MerchandiseTotal:     r.Summary.MerchandiseTotal,
			MerchandiseTotalUnit: r.Summary.MerchandiseTotalUnit,
			FreightTotal:         r.Summary.FreightTotal,
			FreightTotalUnit:     r.Summary.FreightTotalUnit,
			TotalInvoice:         r.Summary.TotalInvoice,
			TotalInvoiceUnit:     r.Summary.TotalInvoiceUnit,
		}
	}

	return inv
}

// normalizeDate keeps well-formed ISO dates, maps anything else that is
// non-empty to the sentinel date.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return model.SentinelDate
	}
	return s
}

// Extractor performs LLM-based invoice extraction
type Extractor struct {
	client      *Client
	textModel   string
	visionModel string
}

// ExtractorOption configures the extractor
type ExtractorOption func(*Extractor)

// WithModel sets the model for both text and vision extraction
func WithModel(model string) ExtractorOption {
	return func(e *Extractor) {
		e.textModel = model
		e.visionModel = model
	}
}

// WithTextModel sets the model used for text extraction
func WithTextModel(model string) ExtractorOption {
	return func(e *Extractor) {
		e.textModel = model
	}
}

// WithVisionModel sets the model used for image extraction
func WithVisionModel(model string) ExtractorOption {
	return func(e *Extractor) {
		e.visionModel = model
	}
}

// NewExtractor creates an extractor backed by the given client.
// Empty model names fall back to the client's default model.
func NewExtractor(client *Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client: client,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ExtractFromText extracts invoice data from raw document text
func (e *Extractor) ExtractFromText(ctx context.Context, text string) (*model.ParsedInvoice, error) {
	prompt := fmt.Sprintf(UserPromptTextExtraction, text)

	raw, err := e.client.ChatText(ctx, e.textModel, SystemPromptInvoiceExtractor, prompt)
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	return parseResponse(raw)
}

// ExtractFromImage extracts invoice data from a scanned page image
func (e *Extractor) ExtractFromImage(ctx context.Context, imageData []byte, mimeType string) (*model.ParsedInvoice, error) {
	raw, err := e.client.ChatWithImage(ctx, e.visionModel, SystemPromptInvoiceExtractor, UserPromptImageExtraction, imageData, mimeType)
	if err != nil {
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}

	return parseResponse(raw)
}

func parseResponse(raw string) (*model.ParsedInvoice, error) {
	var resp LLMResponse
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}

	return resp.ToParsedInvoice(), nil
}
