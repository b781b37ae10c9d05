package database

import (
	"github.com/mdouchement/csvmill/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsConflict returns true if err is an integrity constraint error.
		IsConflict(err error) bool

		BlobInteraction
		ProductInteraction
	}

	// A BlobInteraction defines all the methods used to interact with a blob record.
	BlobInteraction interface {
		FindBlob(id string) (*model.Blob, error)
		UnprocessedBlobs() ([]*model.Blob, error)
		// MarkBlobProcessing flags the blob as claimed by a worker.
		MarkBlobProcessing(id string) (*model.Blob, error)
		// MarkBlobProcessed flips the processed flag. The transition is one way,
		// a processed blob never goes back to unprocessed.
		MarkBlobProcessed(id string) (*model.Blob, error)
		// MarkBlobFailed records the cause of the last processing failure.
		MarkBlobFailed(id string, cause error) (*model.Blob, error)
	}

	// A ProductInteraction defines all the methods used to interact with a product record.
	ProductInteraction interface {
		FindProduct(id string) (*model.Product, error)
		FindProductsByBlobID(id string) ([]*model.Product, error)
		CountProductsByBlobID(id string) (int, error)
	}
)
