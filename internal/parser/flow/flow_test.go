package flow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/parser/flow"
)

func readPage(t *testing.T, filename string, index int) model.RawPage {
	t.Helper()
	content, err := os.ReadFile(filepath.Join("testdata", filename))
	require.NoError(t, err, "failed to read test file: %s", filename)
	return model.RawPage{PageIndex: index, Text: string(content)}
}

func documentPages(t *testing.T) []model.RawPage {
	t.Helper()
	return []model.RawPage{
		readPage(t, "first_page.txt", 0),
		readPage(t, "continuation_page.txt", 1),
		readPage(t, "last_page.txt", 2),
	}
}

func parsePages(t *testing.T, pages []model.RawPage) *model.ParsedInvoice {
	t.Helper()
	inv, err := flow.NewAdapter().Parse(context.Background(), pages)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func hasWarning(inv *model.ParsedInvoice, code string) bool {
	for _, w := range inv.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestAdapter_Layout(t *testing.T) {
	adapter := flow.NewAdapter()
	assert.Equal(t, model.LayoutTextFlow, adapter.Layout())
}

func TestAdapter_CanParse(t *testing.T) {
	adapter := flow.NewAdapter()
	assert.True(t, adapter.CanParse(documentPages(t)))
	assert.False(t, adapter.CanParse([]model.RawPage{{Text: "nothing recognizable here"}}))
}

func TestParse_Document(t *testing.T) {
	inv := parsePages(t, documentPages(t))

	require.NotNil(t, inv.Header)
	h := inv.Header
	assert.Equal(t, "Rezonia Global Trade B.V.Keizersgracht 221, Amsterdam", h.ReportEntity)
	assert.Equal(t, "2024-01-15", h.TransactionDate)
	assert.Equal(t, "310884295", h.InvoiceID)
	assert.Equal(t, "054321987", h.DunID)
	assert.Equal(t, "Alpine Outfitters Group1200 Harbor BlvdRotterdam NL 3011 XD ", h.InvoiceTo)
	assert.Equal(t, "Alpine Outfitters B.V.88 VeerkadeRotterdam NL 3016 DE ", h.SoldTo)
	assert.Equal(t, "Alpine DC BotlekDistripark 7Rotterdam NL 3197 KM", h.ShipTo)
	assert.Equal(t, "USD", h.Currency)
	assert.Equal(t, "44532211", h.CustomerID)
	assert.Equal(t, "552381906", h.SalesOrderID)
	assert.Equal(t, "4500294831", h.CustomerPO)
	assert.Equal(t, "NET 60 DAYS", h.Terms)
	assert.Equal(t, 14, h.CartonsCount)
	assert.True(t, h.CartonsNetWeight.Equal(decimal.RequireFromString("171.500")))
	assert.Equal(t, "KG", h.CartonsNetWeightUnit)
	assert.True(t, h.CartonsGrossWeight.Equal(decimal.RequireFromString("183.250")))
	assert.Equal(t, "KG", h.CartonsGrossWeightUnit)

	require.Len(t, inv.Items, 4)

	jacket := inv.Items[0]
	assert.Equal(t, "157317-001", jacket.StyleColor)
	assert.Equal(t, "FLEECE LINED JACKET ALPINE", jacket.StyleColorDescr)
	assert.Equal(t, "XS", jacket.Size)
	assert.Equal(t, 24, jacket.Qty)
	assert.Equal(t, "HBG", jacket.ProductFamily)
	assert.Equal(t, "CN", jacket.CountryOfOrigin)
	assert.True(t, jacket.RDSCertified)
	assert.Equal(t, "6202.93.0500", jacket.TariffCode)
	assert.Equal(t, "4410773301", jacket.DeliveryID)
	assert.Equal(t, "Style DescriptionFLEECE LINED JACKET ALPINEShell: 100% recycled polyesterLining: 100% polyester ", jacket.OtherDescr)
	assert.True(t, jacket.Price.Equal(decimal.RequireFromString("45.50")))
	assert.True(t, jacket.ExtPrice.Equal(decimal.RequireFromString("1092.00")))

	short := inv.Items[1]
	assert.Equal(t, "240615-002", short.StyleColor)
	assert.Equal(t, "M", short.Size)
	assert.Equal(t, 36, short.Qty)
	assert.Empty(t, short.ProductFamily)
	assert.Equal(t, "CN", short.CountryOfOrigin)
	assert.False(t, short.RDSCertified)
	assert.Equal(t, "6204.63.0905", short.TariffCode)
	assert.Equal(t, "4410773302", short.DeliveryID)
	assert.True(t, short.Price.Equal(decimal.RequireFromString("22.25")))
	assert.True(t, short.ExtPrice.Equal(decimal.RequireFromString("801.00")))

	vest := inv.Items[2]
	assert.Equal(t, "308122-003", vest.StyleColor)
	assert.Equal(t, "XL", vest.Size)
	assert.Equal(t, 48, vest.Qty)
	assert.Equal(t, "HBG", vest.ProductFamily)
	assert.Empty(t, vest.CountryOfOrigin)
	assert.True(t, vest.RDSCertified)
	assert.Empty(t, vest.TariffCode)
	assert.Equal(t, "4410773303", vest.DeliveryID)
	assert.True(t, vest.Price.Equal(decimal.RequireFromString("52.00")))

	hat := inv.Items[3]
	assert.Equal(t, "411209-004", hat.StyleColor)
	assert.Equal(t, "CAP WOOL LOGO", hat.StyleColorDescr)
	assert.Equal(t, "LG", hat.Size)
	assert.Equal(t, 18, hat.Qty)
	assert.Empty(t, hat.ProductFamily)
	assert.Empty(t, hat.CountryOfOrigin)
	assert.False(t, hat.RDSCertified)
	assert.Equal(t, "4410773304", hat.DeliveryID)

	require.NotNil(t, inv.Summary)
	assert.Equal(t, 126, inv.Summary.TotalUnits)
	assert.True(t, inv.Summary.MerchandiseTotal.Equal(decimal.RequireFromString("4659.00")))
	assert.Equal(t, "USD", inv.Summary.MerchandiseTotalUnit)
	assert.True(t, inv.Summary.FreightTotal.Equal(decimal.RequireFromString("185.00")))
	assert.Equal(t, "USD", inv.Summary.FreightTotalUnit)
	assert.True(t, inv.Summary.TotalInvoice.Equal(decimal.RequireFromString("4844.00")))
	assert.Equal(t, "USD", inv.Summary.TotalInvoiceUnit)

	// A clean document parses without a single warning.
	assert.Empty(t, inv.Warnings)

	// The parsed quantities and prices reconcile with the totals block.
	assert.Equal(t, inv.Summary.TotalUnits, inv.TotalQty())
	assert.True(t, inv.SumExtPrice().Equal(inv.Summary.MerchandiseTotal))
}

func TestParse_SharedHeader(t *testing.T) {
	inv := parsePages(t, documentPages(t))

	require.NotNil(t, inv.Header)
	for _, item := range inv.Items {
		require.Same(t, inv.Header, item.Header)
	}
}

func TestParse_Idempotent(t *testing.T) {
	first := parsePages(t, documentPages(t))
	second := parsePages(t, documentPages(t))
	assert.Equal(t, first, second)
}

func TestParse_SinglePageRoundTrip(t *testing.T) {
	inv := parsePages(t, []model.RawPage{readPage(t, "single_page.txt", 0)})

	require.NotNil(t, inv.Header)
	assert.Equal(t, "310884295", inv.Header.InvoiceID)
	assert.Equal(t, "USD", inv.Header.Currency)

	require.Len(t, inv.Items, 2)
	assert.Equal(t, "157317-001", inv.Items[0].StyleColor)
	assert.Equal(t, "240615-002", inv.Items[1].StyleColor)

	require.NotNil(t, inv.Summary)
	assert.Equal(t, 60, inv.Summary.TotalUnits)
	assert.True(t, inv.Summary.MerchandiseTotal.Equal(decimal.RequireFromString("1893.00")))
	assert.True(t, inv.Summary.TotalInvoice.Equal(decimal.RequireFromString("1943.00")))

	assert.Equal(t, inv.Summary.TotalUnits, inv.TotalQty())
	assert.Empty(t, inv.Warnings)
}

func TestParse_StopsAfterClosingPage(t *testing.T) {
	pages := []model.RawPage{
		readPage(t, "first_page.txt", 0),
		readPage(t, "last_page.txt", 1),
		readPage(t, "continuation_page.txt", 2),
	}
	inv := parsePages(t, pages)

	// The continuation page sits past the closing page and is never read.
	require.NotNil(t, inv.Summary)
	assert.Len(t, inv.Items, 3)
}

func TestParse_HeaderReappeared(t *testing.T) {
	pages := []model.RawPage{
		readPage(t, "first_page.txt", 0),
		readPage(t, "first_page.txt", 1),
	}
	_, err := flow.NewAdapter().Parse(context.Background(), pages)
	require.Error(t, err)

	var parseErr *model.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, model.CodeHeaderReappeared, parseErr.Code)
	assert.Equal(t, model.LayoutTextFlow, parseErr.Layout)
	assert.Equal(t, 1, parseErr.Page)
}

func TestParse_AmbiguousDualMarkerPage(t *testing.T) {
	// A later page matching both first and last markers degrades to a
	// continuation instead of failing the document.
	pages := []model.RawPage{
		readPage(t, "first_page.txt", 0),
		readPage(t, "single_page.txt", 1),
	}
	inv := parsePages(t, pages)

	assert.True(t, hasWarning(inv, model.CodeClassificationAmbiguous))
	assert.Nil(t, inv.Summary)
	assert.Len(t, inv.Items, 4)
}

func TestParse_UnmarkedPageTreatedAsContinuation(t *testing.T) {
	pages := []model.RawPage{
		readPage(t, "first_page.txt", 0),
		{PageIndex: 1, Text: "garbled scan output\nwith no recognizable markers"},
	}
	inv := parsePages(t, pages)

	assert.True(t, hasWarning(inv, model.CodeClassificationAmbiguous))
	assert.Len(t, inv.Items, 2)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := flow.NewAdapter().Parse(context.Background(), nil)
	require.Error(t, err)

	var parseErr *model.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, model.LayoutTextFlow, parseErr.Layout)
}

func TestParse_NoAnchors(t *testing.T) {
	page := model.RawPage{PageIndex: 0, Text: "Cover Sheet\nRezonia Global Trade B.V.01/15/2024 Date 310884295 Invoice #\nno products on this page"}
	inv := parsePages(t, []model.RawPage{page})

	assert.Empty(t, inv.Items)
	assert.True(t, hasWarning(inv, model.CodeFieldAbsent))
}

func TestParse_HeaderlessOpeningPage(t *testing.T) {
	// An opening page without the currency-terminated header section still
	// yields the banner fields; everything below defaults to zero values.
	page := model.RawPage{PageIndex: 0, Text: "Mills Statement\nAcme Sportswear Inc01/15/2024 Date 123456789 Invoice #\nnothing else here"}
	inv := parsePages(t, []model.RawPage{page})

	require.NotNil(t, inv.Header)
	h := inv.Header
	assert.Equal(t, "123456789", h.InvoiceID)
	assert.Equal(t, "2024-01-15", h.TransactionDate)
	assert.Equal(t, "Acme Sportswear Inc", h.ReportEntity)
	assert.Empty(t, h.Currency)
	assert.Empty(t, h.CustomerID)
	assert.Empty(t, h.CustomerPO)
	assert.Equal(t, 0, h.CartonsCount)
	assert.True(t, h.CartonsNetWeight.IsZero())
	assert.False(t, hasWarning(inv, model.CodeFieldMalformed))
}

func TestParse_MalformedInvoiceID(t *testing.T) {
	// The invoice number is the one mandatory banner field. When it is
	// missing the header stays partial: banner fields survive, the
	// commercial section is never resolved.
	text := "Head\nAcme Corp01/15/2024 Date INV-XXXX Invoice #\n" +
		"INVOICE TO:\nA\nB\nC SOLD TO:\nD\nE\nF SHIP TO:\nG\nH\nI\nUSD Currency\n" +
		"NET 30 Terms 12345678 Customer #"
	inv := parsePages(t, []model.RawPage{{PageIndex: 0, Text: text}})

	require.NotNil(t, inv.Header)
	assert.Empty(t, inv.Header.InvoiceID)
	assert.Equal(t, "Acme Corp", inv.Header.ReportEntity)
	assert.Empty(t, inv.Header.Currency)
	assert.Empty(t, inv.Header.CustomerID)
	assert.True(t, hasWarning(inv, model.CodeFieldMalformed))
}

func TestParse_SentinelDate(t *testing.T) {
	// A date that matches the shape but not the calendar collapses to the
	// sentinel instead of failing.
	page := model.RawPage{PageIndex: 0, Text: "Head\nAcme Corp13/45/2024 Date 123456789 Invoice #\n"}
	inv := parsePages(t, []model.RawPage{page})

	require.NotNil(t, inv.Header)
	assert.Equal(t, model.SentinelDate, inv.Header.TransactionDate)
}

func TestParse_MissingDate(t *testing.T) {
	page := model.RawPage{PageIndex: 0, Text: "Head\nAcme Corporation X Date 123456789 Invoice #\n"}
	inv := parsePages(t, []model.RawPage{page})

	require.NotNil(t, inv.Header)
	assert.Empty(t, inv.Header.TransactionDate)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		role    flow.PageRole
		hasBand bool
		hasLast bool
	}{
		{
			name:    "opening page",
			text:    "banner Invoice #\naddress lines\nUSD Currency\nterms",
			role:    flow.RoleFirst,
			hasBand: true,
		},
		{
			name:    "continuation page",
			text:    "banner Invoice #\nitem blocks only",
			role:    flow.RoleContinuation,
			hasBand: true,
		},
		{
			name:    "closing page",
			text:    "banner Invoice #\nitems\nREMIT PAYMENT  TO\n \ntotals",
			role:    flow.RoleLast,
			hasBand: true,
			hasLast: true,
		},
		{
			name:    "single page matches first and last",
			text:    "banner Invoice #\naddr\nUSD Currency\nitems\nREMIT PAYMENT  TO\n \ntotals",
			role:    flow.RoleFirst,
			hasBand: true,
			hasLast: true,
		},
		{
			name: "no markers at all",
			text: "free text without any layout",
			role: flow.RoleContinuation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := flow.Classify(tt.text)
			assert.Equal(t, tt.role, cls.Role)
			assert.Equal(t, tt.hasBand, cls.HasBand)
			assert.Equal(t, tt.hasLast, cls.HasLast)
		})
	}
}

func TestPageRole_String(t *testing.T) {
	assert.Equal(t, "first", flow.RoleFirst.String())
	assert.Equal(t, "continuation", flow.RoleContinuation.String())
	assert.Equal(t, "last", flow.RoleLast.String())
}

func TestDecomposeOrigin(t *testing.T) {
	tests := []struct {
		text    string
		kind    flow.OriginKind
		family  string
		country string
	}{
		{"HBG CN", flow.OriginBoth, "HBG", "CN"},
		{"HBG  CN", flow.OriginBoth, "HBG", "CN"},
		{"HBG", flow.OriginFamilyOnly, "HBG", ""},
		{"CN", flow.OriginCountryOnly, "", "CN"},
		{"", flow.OriginNeither, "", ""},
		{"H1G CN", flow.OriginNeither, "", ""},
		{"HBGX CN", flow.OriginNeither, "", ""},
	}

	for _, tt := range tests {
		t.Run("text="+tt.text, func(t *testing.T) {
			origin := flow.DecomposeOrigin(tt.text)
			assert.Equal(t, tt.kind, origin.Kind)
			assert.Equal(t, tt.family, origin.Family)
			assert.Equal(t, tt.country, origin.Country)
		})
	}
}

func TestOriginKind_String(t *testing.T) {
	assert.Equal(t, "both", flow.OriginBoth.String())
	assert.Equal(t, "family_only", flow.OriginFamilyOnly.String())
	assert.Equal(t, "country_only", flow.OriginCountryOnly.String())
	assert.Equal(t, "neither", flow.OriginNeither.String())
}

func BenchmarkParse_Document(b *testing.B) {
	var pages []model.RawPage
	for i, name := range []string{"first_page.txt", "continuation_page.txt", "last_page.txt"} {
		content, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			b.Fatal(err)
		}
		pages = append(pages, model.RawPage{PageIndex: i, Text: string(content)})
	}

	adapter := flow.NewAdapter()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := adapter.Parse(ctx, pages); err != nil {
			b.Fatal(err)
		}
	}
}
