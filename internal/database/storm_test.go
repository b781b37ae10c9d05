package database_test

import (
	"os"
	"testing"

	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (database.Client, func()) {
	dbname, err := os.CreateTemp(os.TempDir(), "csvmill.db.")
	require.NoError(t, err)

	db, err := database.StormOpen(dbname.Name())
	require.NoError(t, err)

	return db, func() {
		db.Close()
		dbname.Close()
		os.RemoveAll(dbname.Name())
	}
}

func TestStormSaveUpsert(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	blob := &model.Blob{
		Content: []byte("SL,NAME,URL\n1,Widget,http://a\n"),
		Status:  model.BlobStatusPending,
	}
	blob.ID = model.DeriveID(blob)

	err := db.Save(blob)
	assert.NoError(t, err)
	assert.False(t, blob.CreatedAt.IsZero())
	assert.False(t, blob.UpdatedAt.IsZero())

	//

	found, err := db.FindBlob(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, blob.Content, found.Content)
	assert.False(t, found.IsProcessed)

	// Re-saving the same id overwrites in place.
	found.Status = model.BlobStatusProcessing
	err = db.Save(found)
	assert.NoError(t, err)

	again, err := db.FindBlob(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.BlobStatusProcessing, again.Status)
}

func TestStormSaveAssignsFallbackID(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	blob := &model.Blob{Content: []byte("x")}
	err := db.Save(blob)
	assert.NoError(t, err)
	assert.NotEmpty(t, blob.ID)
}

func TestStormIsNotFound(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.FindBlob("csv_0000000000")
	assert.Error(t, err)
	assert.True(t, db.IsNotFound(err))
	assert.False(t, db.IsNotFound(errors.New("boom")))
}

func TestStormUnprocessedBlobs(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	blobs, err := db.UnprocessedBlobs()
	assert.NoError(t, err)
	assert.Empty(t, blobs)

	//

	b1 := &model.Blob{Content: []byte("one"), Status: model.BlobStatusPending}
	b1.ID = model.DeriveID(b1)
	require.NoError(t, db.Save(b1))

	b2 := &model.Blob{Content: []byte("two"), Status: model.BlobStatusPending}
	b2.ID = model.DeriveID(b2)
	require.NoError(t, db.Save(b2))

	blobs, err = db.UnprocessedBlobs()
	assert.NoError(t, err)
	assert.Len(t, blobs, 2)

	//

	_, err = db.MarkBlobProcessed(b1.ID)
	assert.NoError(t, err)

	blobs, err = db.UnprocessedBlobs()
	assert.NoError(t, err)
	assert.Len(t, blobs, 1)
	assert.Equal(t, b2.ID, blobs[0].ID)
}

func TestStormMarkBlob(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	blob := &model.Blob{Content: []byte("SL\n1\n"), Status: model.BlobStatusPending}
	blob.ID = model.DeriveID(blob)
	require.NoError(t, db.Save(blob))

	//

	updated, err := db.MarkBlobProcessing(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.BlobStatusProcessing, updated.Status)
	assert.False(t, updated.IsProcessed)

	updated, err = db.MarkBlobFailed(blob.ID, errors.New("transform: boom"))
	assert.NoError(t, err)
	assert.Equal(t, model.BlobStatusFailed, updated.Status)
	assert.Equal(t, "transform: boom", updated.LastError)
	assert.False(t, updated.IsProcessed)

	updated, err = db.MarkBlobProcessed(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.BlobStatusProcessed, updated.Status)
	assert.True(t, updated.IsProcessed)
	assert.Empty(t, updated.LastError)

	// The merge never rewrites the content.
	assert.Equal(t, blob.Content, updated.Content)

	//

	_, err = db.MarkBlobProcessed("csv_0000000000")
	assert.Error(t, err)
	assert.True(t, db.IsNotFound(err))
}

func TestStormProductsByBlobID(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	blob := &model.Blob{Content: []byte("SL\n")}
	blob.ID = model.DeriveID(blob)
	require.NoError(t, db.Save(blob))

	for _, sn := range []string{"2", "1", "3"} {
		product := &model.Product{
			BlobID:       blob.ID,
			SerialNumber: sn,
			Name:         "Widget " + sn,
		}
		product.ID = model.DeriveID(product)
		require.NoError(t, db.Save(product))
	}

	// Another blob's products are not visible.
	other := &model.Product{BlobID: "csv_ffffffffff", SerialNumber: "1"}
	other.ID = model.DeriveID(other)
	require.NoError(t, db.Save(other))

	//

	product := &model.Product{BlobID: blob.ID, SerialNumber: "2"}
	found, err := db.FindProduct(model.DeriveID(product))
	assert.NoError(t, err)
	assert.Equal(t, "Widget 2", found.Name)

	//

	products, err := db.FindProductsByBlobID(blob.ID)
	assert.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "1", products[0].SerialNumber)
	assert.Equal(t, "2", products[1].SerialNumber)
	assert.Equal(t, "3", products[2].SerialNumber)

	n, err := db.CountProductsByBlobID(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	//

	products, err = db.FindProductsByBlobID("csv_0000000000")
	assert.NoError(t, err)
	assert.Empty(t, products)
}
