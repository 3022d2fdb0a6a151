package export

import (
	"encoding/json"
	"fmt"

	"github.com/rezonia/invoice-extractor/internal/model"
)

// JSON renders the document form: header once, items, summary, warnings.
func (e *Exporter) JSON(inv *model.ParsedInvoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("nil invoice")
	}

	data, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return data, nil
}
