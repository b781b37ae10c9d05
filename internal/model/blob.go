package model

// Blob processing statuses.
const (
	BlobStatusPending    = "pending"
	BlobStatusProcessing = "processing"
	BlobStatusProcessed  = "processed"
	BlobStatusFailed     = "failed"
)

// A Blob holds an uploaded CSV file as raw bytes, waiting to be materialized
// into Products by the pipeline.
type Blob struct {
	Base `json:",inline" storm:"inline"`

	// Content is immutable once the blob is stored.
	Content     []byte                 `json:"content"`
	IsProcessed bool                   `json:"is_processed" storm:"index"`
	Status      string                 `json:"status"       storm:"index"`
	LastError   string                 `json:"last_error"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Token returns the type tag used to derive the blob's id.
func (m *Blob) Token() string {
	return "csv"
}

// Identifiers returns the identity fields of the blob.
// Identical uploaded bytes always map to the same blob.
func (m *Blob) Identifiers() []string {
	return []string{string(m.Content)}
}
