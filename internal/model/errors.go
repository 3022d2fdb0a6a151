package model

import "fmt"

// Taxonomy codes for parse anomalies. FieldAbsent through
// ClassificationAmbiguous degrade or warn; HeaderReappeared is the only code
// that fails a whole document.
const (
	CodeFieldAbsent             = "FIELD_ABSENT"
	CodeFieldMalformed          = "FIELD_MALFORMED"
	CodeAnchorSearchExhausted   = "ANCHOR_SEARCH_EXHAUSTED"
	CodeClassificationAmbiguous = "CLASSIFICATION_AMBIGUOUS"
	CodeHeaderReappeared        = "HEADER_REAPPEARED"
)

// ParseError represents document-level parse failures with layout context
type ParseError struct {
	Layout  Layout
	Code    string
	Page    int
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	if e.Page >= 0 {
		msg = fmt.Sprintf("%s (page %d)", msg, e.Page)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Layout, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Layout, msg)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error without page context
func NewParseError(layout Layout, field, message string, cause error) *ParseError {
	return &ParseError{
		Layout:  layout,
		Page:    -1,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// NewHeaderReappearedError marks a second first-classified page inside one
// document. Header carry integrity is gone at that point, so the document
// parse fails rather than returning a partial result.
func NewHeaderReappearedError(layout Layout, page int) *ParseError {
	return &ParseError{
		Layout:  layout,
		Code:    CodeHeaderReappeared,
		Page:    page,
		Field:   "header",
		Message: "header block reappeared after header was already resolved",
	}
}

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// ExtractionError represents upstream extraction failures
type ExtractionError struct {
	Method  string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed [%s]: %s (%v)", e.Method, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed [%s]: %s", e.Method, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewExtractionError creates a new extraction error
func NewExtractionError(method, message string, cause error) *ExtractionError {
	return &ExtractionError{
		Method:  method,
		Message: message,
		Cause:   cause,
	}
}
