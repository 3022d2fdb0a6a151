package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// CSV renders the flattened rows with a leading column-name record.
func (e *Exporter) CSV(inv *model.ParsedInvoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("nil invoice")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}

	rows := Flatten(inv)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv write: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}

	e.logger.Info("export.csv.ok", "rows", len(rows))
	return buf.Bytes(), nil
}
