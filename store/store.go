package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// ownerCache caches the full thought list per owner for the LLM
	// full-scan retrieval path. Invalidated on every write for that owner.
	ownerCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		ownerCache: cache.New(cache.Config{
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
			MaxItems:        256,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.ownerCache.Close()
	return s.driver.Close()
}

// CreateThought persists a thought and updates the full-text index. The FTS
// write is best-effort: the derived index may transiently diverge from the
// thought table and is rebuildable from it.
func (s *Store) CreateThought(ctx context.Context, create *Thought) (*Thought, error) {
	thought, err := s.driver.CreateThought(ctx, create)
	if err != nil {
		return nil, err
	}
	if err := s.driver.UpsertThoughtFTS(ctx, thought); err != nil {
		slog.Warn("failed to update full-text index", "thought_id", thought.ID, "error", err)
	}
	s.ownerCache.Delete(ctx, thought.Owner)
	return thought, nil
}

func (s *Store) ListThoughts(ctx context.Context, find *FindThought) ([]*Thought, error) {
	return s.driver.ListThoughts(ctx, find)
}

// ListAllThoughtsByOwner returns the full corpus for an owner, cached.
func (s *Store) ListAllThoughtsByOwner(ctx context.Context, owner string) ([]*Thought, error) {
	if cached, ok := s.ownerCache.Get(ctx, owner); ok {
		if thoughts, ok := cached.([]*Thought); ok {
			return thoughts, nil
		}
	}
	thoughts, err := s.driver.ListThoughts(ctx, &FindThought{Owner: &owner})
	if err != nil {
		return nil, err
	}
	s.ownerCache.Set(ctx, owner, thoughts)
	return thoughts, nil
}

// DeleteThoughts removes every thought for an owner from the thought table
// and the full-text index, returning the deleted ids so callers can clear
// derived stores.
func (s *Store) DeleteThoughts(ctx context.Context, owner string) ([]string, error) {
	ids, err := s.driver.DeleteThoughts(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.ownerCache.Delete(ctx, owner)
	return ids, nil
}

func (s *Store) UpsertThoughtFTS(ctx context.Context, thought *Thought) error {
	return s.driver.UpsertThoughtFTS(ctx, thought)
}

func (s *Store) DeleteThoughtFTS(ctx context.Context, thoughtID string) error {
	return s.driver.DeleteThoughtFTS(ctx, thoughtID)
}

func (s *Store) BM25Search(ctx context.Context, opts *BM25SearchOptions) ([]*BM25Result, error) {
	return s.driver.BM25Search(ctx, opts)
}

func (s *Store) UpsertThoughtEmbedding(ctx context.Context, embedding *ThoughtEmbedding) error {
	return s.driver.UpsertThoughtEmbedding(ctx, embedding)
}

func (s *Store) DeleteThoughtEmbedding(ctx context.Context, thoughtID string) error {
	return s.driver.DeleteThoughtEmbedding(ctx, thoughtID)
}

func (s *Store) SearchThoughtEmbeddings(ctx context.Context, embedding []float32, limit int) ([]*EmbeddingHit, error) {
	return s.driver.SearchThoughtEmbeddings(ctx, embedding, limit)
}

func (s *Store) ListThoughtIDsWithEmbedding(ctx context.Context) ([]string, error) {
	return s.driver.ListThoughtIDsWithEmbedding(ctx)
}
