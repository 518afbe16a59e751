// Package vector provides the embedding index capability used for semantic
// retrieval. Implementations hold derived, disposable copies of note text and
// a metadata projection keyed by note id; the canonical records stay in the
// thought store and the index can be rebuilt from it at any time.
package vector

import (
	"context"
	"time"
)

// Metadata is the projection stored alongside each indexed document.
type Metadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
}

// Hit is a single nearest-neighbor match. Distance is whatever scale the
// backing index uses; lower is always better.
type Hit struct {
	Document string
	Metadata Metadata
	Distance float64
}

// Index is the embedding index capability.
type Index interface {
	// Upsert stores or replaces the document for id. Re-adding the same id
	// replaces its stored text and metadata.
	Upsert(ctx context.Context, id, text string, meta Metadata) error

	// Remove deletes the document for id. Removing an absent id is a no-op.
	Remove(ctx context.Context, id string) error

	// Query returns up to k hits ordered by ascending distance.
	Query(ctx context.Context, text string, k int) ([]Hit, error)
}
