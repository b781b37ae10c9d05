package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/json"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/csvmill/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(json.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.Init(&model.Blob{}); err != nil {
		return errors.Wrap(err, "could not init blob index")
	}

	err = db.Init(&model.Product{})
	return errors.Wrap(err, "could not init product index")
}

// StormReIndex rebuilds the indexes of the Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&model.Blob{}); err != nil {
		return errors.Wrap(err, "could not ReIndex blobs")
	}

	err = db.ReIndex(&model.Product{})
	return errors.Wrap(err, "could not ReIndex products")
}

// StormOpen opens the Storm database and returns a Client.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
	}
	if m.GetCreatedAt().IsZero() {
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

func (c *strm) Close() error {
	return c.db.Close()
}

func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

func (c *strm) IsConflict(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

//
// Blob
//

func (c *strm) FindBlob(id string) (*model.Blob, error) {
	var blob model.Blob
	err := c.db.One("ID", id, &blob)
	return &blob, errors.Wrap(err, "could not find blob")
}

func (c *strm) UnprocessedBlobs() ([]*model.Blob, error) {
	blobs := make([]*model.Blob, 0)
	err := c.db.Select(q.Eq("IsProcessed", false)).OrderBy("CreatedAt").Find(&blobs)
	if err == storm.ErrNotFound {
		return blobs, nil
	}
	return blobs, errors.Wrap(err, "could not get unprocessed blobs")
}

func (c *strm) MarkBlobProcessing(id string) (*model.Blob, error) {
	return c.mergeBlob(id, func(blob *model.Blob) {
		blob.Status = model.BlobStatusProcessing
	})
}

func (c *strm) MarkBlobProcessed(id string) (*model.Blob, error) {
	return c.mergeBlob(id, func(blob *model.Blob) {
		blob.IsProcessed = true
		blob.Status = model.BlobStatusProcessed
		blob.LastError = ""
	})
}

func (c *strm) MarkBlobFailed(id string, cause error) (*model.Blob, error) {
	return c.mergeBlob(id, func(blob *model.Blob) {
		blob.Status = model.BlobStatusFailed
		blob.LastError = cause.Error()
	})
}

// mergeBlob applies merge to the stored blob and persists it.
// Only the fields touched by merge and UpdatedAt are altered, the content and
// identity of the blob are never rewritten from a caller's stale copy.
func (c *strm) mergeBlob(id string, merge func(blob *model.Blob)) (*model.Blob, error) {
	var blob model.Blob
	if err := c.db.One("ID", id, &blob); err != nil {
		return nil, errors.Wrap(err, "could not find blob")
	}

	merge(&blob)
	blob.UpdatedAt = time.Now().UTC()

	if err := c.db.Save(&blob); err != nil {
		return nil, errors.Wrap(err, "could not update blob")
	}
	return &blob, nil
}

//
// Product
//

func (c *strm) FindProduct(id string) (*model.Product, error) {
	var product model.Product
	err := c.db.One("ID", id, &product)
	return &product, errors.Wrap(err, "could not find product")
}

func (c *strm) FindProductsByBlobID(id string) ([]*model.Product, error) {
	products := make([]*model.Product, 0)
	err := c.db.Select(q.Eq("BlobID", id)).OrderBy("SerialNumber").Find(&products)
	if err == storm.ErrNotFound {
		return products, nil
	}
	return products, errors.Wrap(err, "could not get products by blob_id")
}

func (c *strm) CountProductsByBlobID(id string) (int, error) {
	n, err := c.db.Select(q.Eq("BlobID", id)).Count(&model.Product{})
	return n, errors.Wrap(err, "could not count products by blob_id")
}
