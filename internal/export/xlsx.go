package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rezonia/invoice-extractor/internal/model"
)

const (
	dataSheet = "Invoice_Data"
	metaSheet = "Metadata"
)

// XLSX renders the workbook: one Invoice_Data row per line item under a bold
// frozen header row, plus a Metadata sheet describing the processing run.
func (e *Exporter) XLSX(inv *model.ParsedInvoice, meta Metadata) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("nil invoice")
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	for i, name := range Columns {
		write(dataSheet, i+1, 1, name)
	}

	rows := Flatten(inv)
	for r, row := range rows {
		for c, v := range row {
			write(dataSheet, c+1, r+2, v)
		}
	}

	if styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
		_ = f.SetCellStyle(dataSheet, "A1", last, styleID)
	}
	_ = f.SetPanes(dataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	// Widen the free-text columns
	_ = f.SetColWidth(dataSheet, "A", "A", 36) // report entity
	_ = f.SetColWidth(dataSheet, "E", "G", 36) // addresses
	_ = f.SetColWidth(dataSheet, "R", "S", 24) // style color + description
	_ = f.SetColWidth(dataSheet, "AA", "AA", 48) // other description

	if err := e.writeMetadataSheet(f, write, inv, meta); err != nil {
		return nil, err
	}

	if idx, err := f.GetSheetIndex(dataSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"source", meta.SourceFile,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (e *Exporter) writeMetadataSheet(f *excelize.File, write func(string, int, int, any), inv *model.ParsedInvoice, meta Metadata) error {
	if _, err := f.NewSheet(metaSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	invoiceID := ""
	if inv.Header != nil {
		invoiceID = inv.Header.InvoiceID
	}

	entries := []struct {
		key   string
		value any
	}{
		{"Source File", meta.SourceFile},
		{"Generated At", meta.GeneratedAt.Format(time.RFC3339)},
		{"Extraction Method", meta.Method},
		{"Invoice #", invoiceID},
		{"Pages", meta.PageCount},
		{"Line Items", len(inv.Items)},
		{"Warnings", len(inv.Warnings)},
	}
	for i, entry := range entries {
		write(metaSheet, 1, i+1, entry.key)
		write(metaSheet, 2, i+1, entry.value)
	}
	_ = f.SetColWidth(metaSheet, "A", "A", 20)
	_ = f.SetColWidth(metaSheet, "B", "B", 48)
	return nil
}
