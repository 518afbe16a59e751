// Package embedding reconciles the vector index with the thought table in
// the background. The index is a disposable derived store: anything missing
// from it can be rebuilt from the thoughts themselves.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	"github.com/hrygo/thoughtstream/store"
)

type Runner struct {
	store *store.Store
	index vector.Index

	interval  time.Duration
	batchSize int

	// indexed tracks thought ids already pushed to the index during this
	// process lifetime. Upserts are idempotent, so losing this set on
	// restart only costs redundant writes. Guarded by mu: Forget is called
	// from request handlers while the loop runs.
	mu      sync.Mutex
	indexed map[string]struct{}
}

// NewRunner creates a vector index reconciliation runner.
func NewRunner(s *store.Store, index vector.Index) *Runner {
	return &Runner{
		store:     s,
		index:     index,
		interval:  2 * time.Minute,
		batchSize: 8,
		indexed:   make(map[string]struct{}),
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	r.seedIndexed(ctx)

	// Process once on startup.
	r.processMissingThoughts(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processMissingThoughts(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes thoughts once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.processMissingThoughts(ctx)
}

// seedIndexed loads ids the store-backed index already holds. Drivers
// without an embedding table report nothing, which just means the first
// pass re-upserts everything.
func (r *Runner) seedIndexed(ctx context.Context) {
	ids, err := r.store.ListThoughtIDsWithEmbedding(ctx)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.indexed[id] = struct{}{}
	}
}

func (r *Runner) processMissingThoughts(ctx context.Context) {
	thoughts, err := r.store.ListThoughts(ctx, &store.FindThought{})
	if err != nil {
		slog.Error("failed to list thoughts for indexing", "error", err)
		return
	}

	missing := make([]*store.Thought, 0)
	r.mu.Lock()
	for _, t := range thoughts {
		if _, ok := r.indexed[t.ID]; !ok {
			missing = append(missing, t)
		}
	}
	r.mu.Unlock()
	if len(missing) == 0 {
		return
	}

	slog.Info("indexing thoughts", "count", len(missing))

	for i := 0; i < len(missing); i += r.batchSize {
		select {
		case <-ctx.Done():
			slog.Info("indexing cancelled", "processed", i, "total", len(missing))
			return
		default:
		}

		end := i + r.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[i:end]

		if err := r.processBatch(ctx, batch); err != nil {
			slog.Error("failed to index batch", "error", err)
			continue
		}
		slog.Info("batch indexed", "count", len(batch), "progress", fmt.Sprintf("%d/%d", end, len(missing)))
	}
}

func (r *Runner) processBatch(ctx context.Context, thoughts []*store.Thought) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for _, t := range thoughts {
		err := r.index.Upsert(ctx, t.ID, t.Content, vector.Metadata{
			ID:        t.ID,
			Title:     t.Title,
			CreatedAt: time.Unix(t.CreatedTs, 0).UTC(),
			Source:    string(t.Source),
		})
		if err != nil {
			// Left out of the indexed set, so the next tick retries it.
			slog.Error("failed to upsert thought into index", "thought_id", t.ID, "error", err)
			continue
		}
		r.mu.Lock()
		r.indexed[t.ID] = struct{}{}
		r.mu.Unlock()
	}
	return nil
}

// Forget drops ids from the indexed set after their thoughts were deleted,
// so a recreated thought with the same id would be re-indexed.
func (r *Runner) Forget(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.indexed, id)
	}
}
