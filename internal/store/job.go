// Package store persists processing jobs and their parsed results in a
// single-file bbolt database, keyed by job ID with a SHA-256 content hash
// for duplicate detection.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job records one processing request and its outcome counters. The parsed
// invoice itself lives in the results bucket under the same ID.
type Job struct {
	ID           string     `json:"id"`
	SourceFile   string     `json:"source_file"`
	FileSHA256   string     `json:"file_sha256"`
	Status       JobStatus  `json:"status"`
	Method       string     `json:"method,omitempty"`
	PageCount    int        `json:"page_count,omitempty"`
	ItemCount    int        `json:"item_count,omitempty"`
	WarningCount int        `json:"warning_count,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job for one source document.
func NewJob(sourceFile string, data []byte) *Job {
	return &Job{
		ID:         uuid.NewString(),
		SourceFile: sourceFile,
		FileSHA256: HashBytes(data),
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// HashBytes returns the hex SHA-256 of the document content.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MarkProcessing transitions the job to processing.
func (j *Job) MarkProcessing() {
	now := time.Now().UTC()
	j.Status = StatusProcessing
	j.StartedAt = &now
}

// MarkCompleted records the outcome counters and completion time.
func (j *Job) MarkCompleted(method string, pageCount, itemCount, warningCount int) {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.Method = method
	j.PageCount = pageCount
	j.ItemCount = itemCount
	j.WarningCount = warningCount
	j.CompletedAt = &now
}

// MarkFailed records the failure.
func (j *Job) MarkFailed(err error) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.CompletedAt = &now
}
