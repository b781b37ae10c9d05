package model

// A Product is one materialized row of an uploaded CSV blob.
type Product struct {
	Base `json:",inline" storm:"inline"`

	BlobID string `json:"blob_id" storm:"index"`

	SerialNumber    string                 `json:"serial_number" storm:"index"`
	Name            string                 `json:"name"`
	InputImageURLs  []string               `json:"input_image_urls"`
	OutputImageURLs []string               `json:"output_image_urls"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// Token returns the type tag used to derive the product's id.
func (m *Product) Token() string {
	return "product"
}

// Identifiers returns the identity fields of the product.
// The same serial number in two different blobs is a different identity.
func (m *Product) Identifiers() []string {
	return []string{m.SerialNumber, m.BlobID}
}
