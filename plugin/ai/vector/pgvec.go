package vector

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
	"github.com/hrygo/thoughtstream/store"
)

// StoreIndex is an Index backed by the postgres thought_embedding table.
// Embedding happens client-side; storage and nearest-neighbor search are
// delegated to the store driver.
type StoreIndex struct {
	store    *store.Store
	embedder ai.EmbeddingService
}

// NewStoreIndex creates an Index on top of the store's pgvector support.
func NewStoreIndex(st *store.Store, embedder ai.EmbeddingService) *StoreIndex {
	return &StoreIndex{store: st, embedder: embedder}
}

func (s *StoreIndex) Upsert(ctx context.Context, id, text string, meta Metadata) error {
	vec, err := s.embed(ctx, text)
	if err != nil {
		return err
	}
	return timeout.Do(ctx, timeout.IndexWriteTimeout, func(ctx context.Context) error {
		return s.store.UpsertThoughtEmbedding(ctx, &store.ThoughtEmbedding{
			ThoughtID: id,
			Document:  text,
			Title:     meta.Title,
			Source:    store.Source(meta.Source),
			CreatedTs: meta.CreatedAt.Unix(),
			Embedding: vec,
		})
	})
}

func (s *StoreIndex) Remove(ctx context.Context, id string) error {
	return timeout.Do(ctx, timeout.IndexWriteTimeout, func(ctx context.Context) error {
		return s.store.DeleteThoughtEmbedding(ctx, id)
	})
}

func (s *StoreIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var raw []*store.EmbeddingHit
	err = timeout.Do(ctx, timeout.IndexQueryTimeout, func(ctx context.Context) error {
		var queryErr error
		raw, queryErr = s.store.SearchThoughtEmbeddings(ctx, vec, k)
		return queryErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}

	hits := make([]Hit, len(raw))
	for i, r := range raw {
		hits[i] = Hit{
			Document: r.Document,
			Metadata: Metadata{
				ID:        r.ThoughtID,
				Title:     r.Title,
				CreatedAt: time.Unix(r.CreatedTs, 0).UTC(),
				Source:    string(r.Source),
			},
			Distance: r.Distance,
		}
	}
	return hits, nil
}

func (s *StoreIndex) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := timeout.Do(ctx, timeout.EmbeddingTimeout, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = s.embedder.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed text")
	}
	return vec, nil
}
