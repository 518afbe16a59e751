package sqlite

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/store"
)

// SQLite has no vector extension wired in; deployments on SQLite use the
// external chroma index for semantic search instead.

func (d *DB) UpsertThoughtEmbedding(ctx context.Context, embedding *store.ThoughtEmbedding) error {
	return errors.New("thought embedding storage requires PostgreSQL with pgvector extension")
}

// DeleteThoughtEmbedding succeeds so bulk clear works uniformly across
// drivers.
func (d *DB) DeleteThoughtEmbedding(ctx context.Context, thoughtID string) error {
	return nil
}

func (d *DB) SearchThoughtEmbeddings(ctx context.Context, embedding []float32, limit int) ([]*store.EmbeddingHit, error) {
	return nil, errors.New("vector search requires PostgreSQL with pgvector extension")
}

func (d *DB) ListThoughtIDsWithEmbedding(ctx context.Context) ([]string, error) {
	return nil, errors.New("thought embedding storage requires PostgreSQL with pgvector extension")
}
