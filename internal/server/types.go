package server

import (
	"github.com/rezonia/invoice-extractor/internal/model"
)

// ProcessResponse is the response for process endpoints
type ProcessResponse struct {
	Invoice    *model.ParsedInvoice `json:"invoice"`
	Method     string               `json:"method"`
	Confidence float64              `json:"confidence"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// InfoResponse is the response for the info endpoint
type InfoResponse struct {
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
	Pages    int    `json:"pages,omitempty"`
}
