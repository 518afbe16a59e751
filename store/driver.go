package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Thought model related methods.
	CreateThought(ctx context.Context, create *Thought) (*Thought, error)
	ListThoughts(ctx context.Context, find *FindThought) ([]*Thought, error)
	DeleteThoughts(ctx context.Context, owner string) ([]string, error)

	// Full-text index related methods. The FTS index holds a derived copy of
	// the thought, rebuildable from the thought table.
	UpsertThoughtFTS(ctx context.Context, thought *Thought) error
	DeleteThoughtFTS(ctx context.Context, thoughtID string) error
	BM25Search(ctx context.Context, opts *BM25SearchOptions) ([]*BM25Result, error)

	// Embedding related methods (postgres only; sqlite deployments use the
	// external chroma index instead).
	UpsertThoughtEmbedding(ctx context.Context, embedding *ThoughtEmbedding) error
	DeleteThoughtEmbedding(ctx context.Context, thoughtID string) error
	SearchThoughtEmbeddings(ctx context.Context, embedding []float32, limit int) ([]*EmbeddingHit, error)
	ListThoughtIDsWithEmbedding(ctx context.Context) ([]string, error)
}
