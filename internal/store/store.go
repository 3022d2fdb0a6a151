package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rezonia/invoice-extractor/internal/model"
)

const (
	jobsBucket    = "jobs"
	resultsBucket = "results"
)

// ErrNotFound marks lookups for jobs or results that do not exist.
var ErrNotFound = errors.New("not found")

// Store is a bbolt-backed job and result store.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Open opens or creates the store file. A nil logger falls back to
// slog.Default.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(jobsBucket)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(resultsBucket)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// SaveJob writes the job record under its ID.
func (s *Store) SaveJob(job *Job) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(jobsBucket))
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshaling job: %w", err)
		}
		return bucket.Put([]byte(job.ID), data)
	})
	if err != nil {
		return err
	}

	s.logger.Info("store.job.saved", "id", job.ID, "status", string(job.Status))
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(id string) (*Job, error) {
	var job *Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(jobsBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs() ([]*Job, error) {
	jobs := make([]*Job, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(jobsBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var job Job
			if err := json.Unmarshal(v, &job); err != nil {
				return fmt.Errorf("unmarshaling job: %w", err)
			}
			jobs = append(jobs, &job)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// FindJobByHash returns the most recent job with the given content hash, or
// ErrNotFound when the document has never been processed.
func (s *Store) FindJobByHash(hash string) (*Job, error) {
	jobs, err := s.ListJobs()
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.FileSHA256 == hash {
			return job, nil
		}
	}
	return nil, fmt.Errorf("hash %s: %w", hash, ErrNotFound)
}

// DeleteJob removes a job and its stored result.
func (s *Store) DeleteJob(id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(jobsBucket)).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket([]byte(resultsBucket)).Delete([]byte(id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("store.job.deleted", "id", id)
	return nil
}

// SaveResult stores the parsed invoice for a job.
func (s *Store) SaveResult(jobID string, inv *model.ParsedInvoice) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultsBucket))
		data, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		return bucket.Put([]byte(jobID), data)
	})
}

// GetResult retrieves the parsed invoice for a job.
func (s *Store) GetResult(jobID string) (*model.ParsedInvoice, error) {
	var inv *model.ParsedInvoice
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(resultsBucket))
		data := bucket.Get([]byte(jobID))
		if data == nil {
			return fmt.Errorf("result %s: %w", jobID, ErrNotFound)
		}
		return json.Unmarshal(data, &inv)
	})
	if err != nil {
		return nil, err
	}

	// Rewire the shared header reference items lose in serialized form.
	if inv != nil {
		for i := range inv.Items {
			inv.Items[i].Header = inv.Header
		}
	}
	return inv, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
