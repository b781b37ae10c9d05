package service

import (
	"github.com/mdouchement/csvmill/internal/database"
	"github.com/mdouchement/csvmill/internal/webserver/serializer"
	"github.com/pkg/errors"
)

// An Exporter renders the materialized products of a blob back into a CSV file.
type Exporter struct {
	database database.Client
}

// NewExporter returns a new Exporter.
func NewExporter(database database.Client) *Exporter {
	return &Exporter{
		database: database,
	}
}

// Render returns the CSV export of the given blob's products, ordered by
// serial number. A blob without materialized products yields a header-only
// file, which is not an error.
func (s *Exporter) Render(blobID string) ([]byte, error) {
	blob, err := s.database.FindBlob(blobID)
	if err != nil {
		return nil, errors.Wrap(err, "export")
	}

	products, err := s.database.FindProductsByBlobID(blob.ID)
	if err != nil {
		return nil, errors.Wrap(err, "export")
	}

	return serializer.CSVProducts(products)
}
