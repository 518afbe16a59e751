package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/server/internal/observability"

	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	"github.com/hrygo/thoughtstream/store"
)

// LexicalRetriever answers queries from the store's full-text index. It
// needs no AI services and works the same whether or not the vector index
// exists, so it serves as the deterministic fallback path.
type LexicalRetriever struct {
	store *store.Store
	limit int
}

// NewLexicalRetriever creates the lexical retrieval engine.
func NewLexicalRetriever(s *store.Store) *LexicalRetriever {
	return &LexicalRetriever{store: s, limit: defaultLimit}
}

// Search runs a BM25 match scoped to the request owner. Hits carry the raw
// rank as Distance so the contract's "lower is better" ordering holds, and
// the snippet generated by the FTS engine as Document.
func (l *LexicalRetriever) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &Result{Hits: []*Hit{}}, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = l.limit
	}

	rows, err := l.store.BM25Search(ctx, &store.BM25SearchOptions{
		Owner: req.Owner,
		Query: query,
		Limit: limit,
	})
	if err != nil {
		observability.GlobalMetrics().RecordFailure(EngineLexical)
		return nil, serrors.Wrap(serrors.ErrCodeRetrievalUnavailable,
			"lexical search failed", err)
	}

	hits := make([]*Hit, 0, len(rows))
	for _, row := range rows {
		doc := row.Snippet
		if doc == "" {
			doc = row.Thought.Content
		}
		hits = append(hits, &Hit{
			Document: doc,
			Metadata: vector.Metadata{
				ID:        row.Thought.ID,
				Title:     row.Thought.Title,
				CreatedAt: time.Unix(row.Thought.CreatedTs, 0).UTC(),
				Source:    string(row.Thought.Source),
			},
			Distance:   row.Rank,
			MatchedBy:  []string{query},
			MatchCount: 1,
		})
	}

	observability.GlobalMetrics().RecordSearch(EngineLexical, 1, len(hits), time.Since(start))

	slog.Debug("lexical_search_complete",
		slog.String("query", query),
		slog.Int("results", len(hits)),
		slog.Duration("duration", time.Since(start)))

	return &Result{
		Hits:             hits,
		Variations:       []string{query},
		TotalBeforeDedup: len(hits),
	}, nil
}
