// Package qdrant wraps the Qdrant Go client with highlight-specific
// operations: a single dense vector per highlight, user-scoped search,
// and the collection lifecycle.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for the highlight collection.
type CollectionConfig struct {
	// Name is the collection name (will be prefixed with "lucid_").
	Name string

	// VectorSize is the dense embedding dimension.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before the HNSW index is built.
	IndexingThreshold uint64
}

// DefaultCollectionConfig returns sensible defaults for a highlight collection.
func DefaultCollectionConfig(name string) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		VectorSize:        1536,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
	}
}

// Point represents a highlight embedding to upsert.
type Point struct {
	// ID is the highlight identifier.
	ID string

	// Vector is the dense embedding.
	Vector []float32

	// Payload is the metadata stored alongside the vector.
	Payload PointPayload
}

// PointPayload contains the filterable metadata for a highlight point.
type PointPayload struct {
	UserID    string    `json:"user_id"`
	BookID    string    `json:"book_id"`
	Text      string    `json:"text"`
	IndexedAt time.Time `json:"indexed_at"`
}

// DeleteFilter defines conditions for deleting points.
type DeleteFilter struct {
	// IDs deletes specific highlight IDs.
	IDs []string

	// BookID deletes all points for a book.
	BookID string

	// UserID scopes a BookID delete to one user, or deletes all of a
	// user's points when set alone.
	UserID string
}
