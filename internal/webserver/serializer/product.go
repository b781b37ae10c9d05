package serializer

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/mdouchement/csvmill/internal/model"
	"github.com/pkg/errors"
)

// CSVHeader is the fixed header of an exported CSV.
var CSVHeader = []string{
	"PRODUCT_SL_NO",
	"PRODUCT_NAME",
	"INPUT_PRODUCT_IMAGE_URLS",
	"OUTPUT_PRODUCT_IMAGE_URLS",
}

// CSVProducts returns the CSV serialized form of the given models.
// Multi-valued URL columns are flattened to a single cell, an empty list
// renders as an empty cell.
func CSVProducts(products []*model.Product) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, errors.Wrap(err, "could not serialize header")
	}

	for _, product := range products {
		record := []string{
			product.SerialNumber,
			product.Name,
			strings.Join(product.InputImageURLs, ", "),
			strings.Join(product.OutputImageURLs, ", "),
		}

		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "could not serialize product")
		}
	}

	w.Flush()
	return buf.Bytes(), errors.Wrap(w.Error(), "could not serialize products")
}
