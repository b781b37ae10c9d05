package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Delimiter separates the identifiers concatenated by DeriveID.
const Delimiter = "|"

type (
	// A Model is a persistable entity.
	Model interface {
		GetID() string
		SetID(id string)
		GetCreatedAt() time.Time
		SetCreatedAt(t time.Time)
		SetUpdatedAt(t time.Time)
	}

	// An Identity provides the material used to compute a content-based id.
	Identity interface {
		// Token returns the entity type tag prefixed to the derived id.
		Token() string
		// Identifiers returns the ordered fields defining the entity's identity.
		Identifiers() []string
	}

	// Base holds the fields shared by all the models.
	Base struct {
		ID        string    `json:"id"         storm:"id"`
		CreatedAt time.Time `json:"created_at" storm:"index"`
		UpdatedAt time.Time `json:"updated_at"`
	}
)

// GetID returns the model's id.
func (m *Base) GetID() string {
	return m.ID
}

// SetID defines the model's id.
func (m *Base) SetID(id string) {
	m.ID = id
}

// GetCreatedAt returns the model's creation time.
func (m *Base) GetCreatedAt() time.Time {
	return m.CreatedAt
}

// SetCreatedAt defines the model's creation time.
func (m *Base) SetCreatedAt(t time.Time) {
	m.CreatedAt = t
}

// SetUpdatedAt defines the model's last modification time.
func (m *Base) SetUpdatedAt(t time.Time) {
	m.UpdatedAt = t
}

// DeriveID computes the content-based id of the given identity.
// Two entities carrying the same identifiers always collide to the same id,
// which makes re-submission an upsert instead of a duplicate.
func DeriveID(identity Identity) string {
	var concatenated string
	for _, identifier := range identity.Identifiers() {
		concatenated += identifier + Delimiter
	}

	sum := sha256.Sum256([]byte(concatenated))
	return identity.Token() + "_" + hex.EncodeToString(sum[:])[:10]
}
