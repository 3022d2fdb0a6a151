package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-extractor/internal/extract"
	"github.com/rezonia/invoice-extractor/internal/model"
)

func TestNewExtractor(t *testing.T) {
	extractor := extract.NewExtractor()
	require.NotNil(t, extractor)
}

func TestExtractBytes_InvalidPDF(t *testing.T) {
	extractor := extract.NewExtractor()

	_, err := extractor.ExtractBytes(context.Background(), []byte("not a pdf at all"))
	require.Error(t, err)

	var extractErr *model.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "pdf", extractErr.Method)
}

func TestExtractBytes_WithoutValidation(t *testing.T) {
	// Skipping validation still rejects garbage, just later and from the
	// renderer instead.
	extractor := extract.NewExtractor(extract.WithoutValidation())

	_, err := extractor.ExtractBytes(context.Background(), []byte("still not a pdf"))
	require.Error(t, err)
}

func TestExtractFile_Missing(t *testing.T) {
	extractor := extract.NewExtractor()

	_, err := extractor.ExtractFile(context.Background(), "testdata/does-not-exist.pdf")
	require.Error(t, err)

	var extractErr *model.ExtractionError
	require.ErrorAs(t, err, &extractErr)
}

func TestPageCount_InvalidPDF(t *testing.T) {
	extractor := extract.NewExtractor()

	_, err := extractor.PageCount([]byte("no pages here"))
	require.Error(t, err)
}
