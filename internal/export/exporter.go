package export

import (
	"log/slog"
	"time"
)

// Metadata describes one processing run; it lands on the workbook's
// second sheet and in the CLI summary output.
type Metadata struct {
	SourceFile  string
	Method      string
	PageCount   int
	GeneratedAt time.Time
}

// Exporter writes parsed invoices to the downstream formats.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an exporter. A nil logger falls back to slog.Default.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}
