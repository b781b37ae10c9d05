package service

import (
	"bytes"
	"io"

	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/model"
	"github.com/mdouchement/csvmill/internal/storage"
	"github.com/pkg/errors"
)

// UploadBucket is the storage bucket where accepted uploads are archived.
const UploadBucket = "uploads"

// An Ingester stores an uploaded CSV file and schedules its processing.
type Ingester struct {
	database database.Client
	storage  storage.Backend
	enqueue  func(id string) bool
}

// NewIngester returns a new Ingester.
func NewIngester(database database.Client, storage storage.Backend, enqueue func(id string) bool) *Ingester {
	return &Ingester{
		database: database,
		storage:  storage,
		enqueue:  enqueue,
	}
}

// Ingest persists the raw bytes as a blob and enqueues it for background
// processing. It returns without waiting for the processing. The content is
// not validated here, a malformed file surfaces later as a processing failure.
func (s *Ingester) Ingest(content []byte) (*model.Blob, error) {
	blob := &model.Blob{
		Content:  content,
		Status:   model.BlobStatusPending,
		Metadata: map[string]interface{}{},
	}
	blob.ID = model.DeriveID(blob)

	existing, err := s.database.FindBlob(blob.ID)
	switch {
	case err == nil:
		// Identical bytes were already ingested. Keep the stored record and
		// whatever progress it carries, a processed blob never goes back to
		// unprocessed.
		blob = existing
	case s.database.IsNotFound(err):
		if err := s.database.Save(blob); err != nil {
			return nil, errors.Wrap(err, "could not save blob")
		}

		if err := s.archive(blob); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrap(err, "could not lookup blob")
	}

	s.enqueue(blob.ID)
	return blob, nil
}

// archive keeps a copy of the original file on storage for ops inspection.
func (s *Ingester) archive(blob *model.Blob) error {
	wc, err := s.storage.Writer(UploadBucket, blob.ID+".csv")
	if err != nil {
		return errors.Wrap(err, "archive")
	}
	defer wc.Close()

	_, err = io.Copy(wc, bytes.NewReader(blob.Content))
	return errors.Wrap(err, "archive")
}
