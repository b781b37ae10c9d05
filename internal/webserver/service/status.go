package service

import (
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/pipeline"
	"github.com/pkg/errors"
)

type (
	// A Status computes the processing progress of a blob.
	Status struct {
		database database.Client
	}

	// A Progress reports how many rows of a blob are materialized so far.
	// Both counts are read independently, they can be observed transiently
	// inconsistent while a worker is running.
	Progress struct {
		CountRows         int
		CountRowsInserted int
		Status            string
	}
)

// NewStatus returns a new Status.
func NewStatus(database database.Client) *Status {
	return &Status{
		database: database,
	}
}

// Check returns the progress of the given blob.
func (s *Status) Check(blobID string) (*Progress, error) {
	blob, err := s.database.FindBlob(blobID)
	if err != nil {
		return nil, errors.Wrap(err, "status")
	}

	rows, err := pipeline.ParseRows(blob.Content)
	if err != nil {
		return nil, errors.Wrap(err, "status")
	}

	inserted, err := s.database.CountProductsByBlobID(blob.ID)
	if err != nil {
		return nil, errors.Wrap(err, "status")
	}

	total := len(rows) - 1 // minus the header
	if total < 0 {
		total = 0
	}

	return &Progress{
		CountRows:         total,
		CountRowsInserted: inserted,
		Status:            blob.Status,
	}, nil
}
