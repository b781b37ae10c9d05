package pipeline_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/model"
	"github.com/mdouchement/csvmill/internal/pipeline"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, transform pipeline.Transform) (database.Client, *pipeline.Pool, func()) {
	dbname, err := os.CreateTemp(os.TempDir(), "csvmill.db.")
	require.NoError(t, err)

	db, err := database.StormOpen(dbname.Name())
	require.NoError(t, err)

	pool := pipeline.NewPool(pipeline.Controller{
		Logger:    logger.WrapLogrus(logrus.New()),
		Database:  db,
		Transform: transform,
		Workers:   2,
	})
	pool.Start()

	return db, pool, func() {
		pool.Stop()
		db.Close()
		dbname.Close()
		os.RemoveAll(dbname.Name())
	}
}

func saveBlob(t *testing.T, db database.Client, content string) *model.Blob {
	blob := &model.Blob{
		Content: []byte(content),
		Status:  model.BlobStatusPending,
	}
	blob.ID = model.DeriveID(blob)
	require.NoError(t, db.Save(blob))
	return blob
}

func waitFor(t *testing.T, condition func() bool) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition never reached")
}

func TestPoolProcess(t *testing.T) {
	db, pool, cleanup := setup(t, pipeline.SuffixTransform{Suffix: "output"})
	defer cleanup()

	blob := saveBlob(t, db, "SL,NAME,URL\n1,Widget,http://a\n2,Gadget,http://b\n")
	assert.True(t, pool.Enqueue(blob.ID))

	waitFor(t, func() bool {
		blob, err := db.FindBlob(blob.ID)
		return err == nil && blob.IsProcessed
	})

	//

	blob, err := db.FindBlob(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.BlobStatusProcessed, blob.Status)

	products, err := db.FindProductsByBlobID(blob.ID)
	assert.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "1", products[0].SerialNumber)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, []string{"http://a"}, products[0].InputImageURLs)
	assert.Equal(t, []string{"http://aoutput"}, products[0].OutputImageURLs)

	assert.Equal(t, "2", products[1].SerialNumber)
	assert.Equal(t, []string{"http://boutput"}, products[1].OutputImageURLs)
}

func TestPoolProcessIdempotent(t *testing.T) {
	db, pool, cleanup := setup(t, pipeline.SuffixTransform{Suffix: "output"})
	defer cleanup()

	blob := saveBlob(t, db, "SL,NAME,URL\n1,Widget,http://a\n2,Gadget,http://b\n")
	assert.True(t, pool.Enqueue(blob.ID))

	waitFor(t, func() bool {
		blob, err := db.FindBlob(blob.ID)
		return err == nil && blob.IsProcessed
	})

	// Simulate a blob whose completion was lost, every row runs again.
	blob, err := db.FindBlob(blob.ID)
	require.NoError(t, err)
	blob.IsProcessed = false
	blob.Status = model.BlobStatusPending
	require.NoError(t, db.Save(blob))

	assert.True(t, pool.Enqueue(blob.ID))
	waitFor(t, func() bool {
		blob, err := db.FindBlob(blob.ID)
		return err == nil && blob.IsProcessed
	})

	// Same rows, same identities, no duplicates.
	n, err := db.CountProductsByBlobID(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPoolProcessFailure(t *testing.T) {
	db, pool, cleanup := setup(t, failingTransform{})
	defer cleanup()

	blob := saveBlob(t, db, "SL,NAME,URL\n1,Widget,http://a\n")
	assert.True(t, pool.Enqueue(blob.ID))

	waitFor(t, func() bool {
		blob, err := db.FindBlob(blob.ID)
		return err == nil && blob.Status == model.BlobStatusFailed
	})

	//

	blob, err := db.FindBlob(blob.ID)
	assert.NoError(t, err)
	assert.False(t, blob.IsProcessed)
	assert.Contains(t, blob.LastError, "boom")

	n, err := db.CountProductsByBlobID(blob.ID)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPoolProcessMalformedRow(t *testing.T) {
	db, pool, cleanup := setup(t, pipeline.SuffixTransform{Suffix: "output"})
	defer cleanup()

	blob := saveBlob(t, db, "SL,NAME,URL\n1\n")
	assert.True(t, pool.Enqueue(blob.ID))

	waitFor(t, func() bool {
		blob, err := db.FindBlob(blob.ID)
		return err == nil && blob.Status == model.BlobStatusFailed
	})

	blob, err := db.FindBlob(blob.ID)
	assert.NoError(t, err)
	assert.Contains(t, blob.LastError, "malformed row")
}

func TestPoolEnqueueDeduplicates(t *testing.T) {
	dbname, err := os.CreateTemp(os.TempDir(), "csvmill.db.")
	require.NoError(t, err)
	defer os.RemoveAll(dbname.Name())
	defer dbname.Close()

	db, err := database.StormOpen(dbname.Name())
	require.NoError(t, err)
	defer db.Close()

	// Not started, enqueued ids stay claimed.
	pool := pipeline.NewPool(pipeline.Controller{
		Logger:    logger.WrapLogrus(logrus.New()),
		Database:  db,
		Transform: pipeline.SuffixTransform{Suffix: "output"},
	})

	assert.True(t, pool.Enqueue("csv_0123456789"))
	assert.False(t, pool.Enqueue("csv_0123456789"))
	assert.True(t, pool.Enqueue("csv_9876543210"))
}

func TestParseRows(t *testing.T) {
	rows, err := pipeline.ParseRows([]byte("SL,NAME,URL\n1,Widget,http://a,http://b\n"))
	assert.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "Widget", "http://a", "http://b"}, rows[1])

	rows, err = pipeline.ParseRows(nil)
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

type failingTransform struct{}

func (failingTransform) Transform(_ context.Context, _ []string) ([]string, error) {
	return nil, errors.New("boom")
}
