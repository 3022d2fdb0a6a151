package store_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-extractor/internal/model"
	"github.com/rezonia/invoice-extractor/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "jobs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewJob(t *testing.T) {
	job := store.NewJob("invoice.pdf", []byte("document content"))

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "invoice.pdf", job.SourceFile)
	assert.Len(t, job.FileSHA256, 64)
	assert.Equal(t, store.StatusPending, job.Status)
	assert.False(t, job.CreatedAt.IsZero())
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
}

func TestJob_Transitions(t *testing.T) {
	job := store.NewJob("invoice.pdf", []byte("content"))

	job.MarkProcessing()
	assert.Equal(t, store.StatusProcessing, job.Status)
	require.NotNil(t, job.StartedAt)

	job.MarkCompleted("text_flow", 3, 4, 0)
	assert.Equal(t, store.StatusCompleted, job.Status)
	assert.Equal(t, "text_flow", job.Method)
	assert.Equal(t, 3, job.PageCount)
	assert.Equal(t, 4, job.ItemCount)
	require.NotNil(t, job.CompletedAt)
}

func TestJob_MarkFailed(t *testing.T) {
	job := store.NewJob("invoice.pdf", []byte("content"))

	job.MarkFailed(errors.New("no matching adapter"))
	assert.Equal(t, store.StatusFailed, job.Status)
	assert.Equal(t, "no matching adapter", job.Error)
	require.NotNil(t, job.CompletedAt)
}

func TestSaveAndGetJob(t *testing.T) {
	s := openStore(t)

	job := store.NewJob("invoice.pdf", []byte("content"))
	require.NoError(t, s.SaveJob(job))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.SourceFile, got.SourceFile)
	assert.Equal(t, job.FileSHA256, got.FileSHA256)
	assert.Equal(t, store.StatusPending, got.Status)
}

func TestGetJob_Missing(t *testing.T) {
	s := openStore(t)

	_, err := s.GetJob("no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListJobs_NewestFirst(t *testing.T) {
	s := openStore(t)

	older := store.NewJob("first.pdf", []byte("a"))
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := store.NewJob("second.pdf", []byte("b"))

	require.NoError(t, s.SaveJob(older))
	require.NoError(t, s.SaveJob(newer))

	jobs, err := s.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "second.pdf", jobs[0].SourceFile)
	assert.Equal(t, "first.pdf", jobs[1].SourceFile)
}

func TestFindJobByHash(t *testing.T) {
	s := openStore(t)

	content := []byte("the same document bytes")
	job := store.NewJob("invoice.pdf", content)
	require.NoError(t, s.SaveJob(job))

	found, err := s.FindJobByHash(store.HashBytes(content))
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	_, err = s.FindJobByHash(store.HashBytes([]byte("different bytes")))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteJob(t *testing.T) {
	s := openStore(t)

	job := store.NewJob("invoice.pdf", []byte("content"))
	require.NoError(t, s.SaveJob(job))
	require.NoError(t, s.SaveResult(job.ID, &model.ParsedInvoice{Header: &model.InvoiceHeader{InvoiceID: "310884295"}}))

	require.NoError(t, s.DeleteJob(job.ID))

	_, err := s.GetJob(job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetResult(job.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveAndGetResult(t *testing.T) {
	s := openStore(t)

	header := &model.InvoiceHeader{
		InvoiceID: "310884295",
		Currency:  "USD",
	}
	inv := &model.ParsedInvoice{
		Header: header,
		Items: []model.LineItem{
			{
				StyleColor: "157317-001",
				Qty:        24,
				Price:      decimal.RequireFromString("45.50"),
				Header:     header,
			},
		},
	}

	job := store.NewJob("invoice.pdf", []byte("content"))
	require.NoError(t, s.SaveJob(job))
	require.NoError(t, s.SaveResult(job.ID, inv))

	got, err := s.GetResult(job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Header)
	assert.Equal(t, "310884295", got.Header.InvoiceID)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("45.50")))
	// Items point back at the document header after a round trip.
	require.Same(t, got.Header, got.Items[0].Header)
}

func TestGetResult_Missing(t *testing.T) {
	s := openStore(t)

	_, err := s.GetResult("no-such-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")

	s, err := store.Open(path, nil)
	require.NoError(t, err)
	job := store.NewJob("invoice.pdf", []byte("content"))
	require.NoError(t, s.SaveJob(job))
	require.NoError(t, s.Close())

	reopened, err := store.Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.SourceFile, got.SourceFile)
}
