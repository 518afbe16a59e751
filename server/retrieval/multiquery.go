package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	serrors "github.com/hrygo/thoughtstream/server/internal/errors"
	"github.com/hrygo/thoughtstream/server/internal/observability"

	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
	"github.com/hrygo/thoughtstream/plugin/ai/variation"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
)

const (
	defaultPerVariationLimit = 10
	defaultLimit             = 10
	defaultParallelism       = 4
)

// MultiQueryRetriever broadens a single user query into several phrasings,
// runs them against the vector index concurrently, and merges the result
// sets into one deduplicated, distance-ranked list.
//
// A document returned by several variations keeps only one entry, carrying
// the smallest distance any variation observed for it. A variation whose
// index call fails contributes nothing; the request only fails when every
// variation fails and a last attempt with the literal query fails too.
type MultiQueryRetriever struct {
	index      vector.Index
	variations variation.Generator

	dedupByID         bool
	parallelism       int
	perVariationLimit int
	limit             int
}

// MultiQueryOption configures a MultiQueryRetriever.
type MultiQueryOption func(*MultiQueryRetriever)

// WithDedupByID switches deduplication from literal document text to the
// document id carried in index metadata. Useful when distinct thoughts may
// share identical text and should stay separate in results.
func WithDedupByID() MultiQueryOption {
	return func(m *MultiQueryRetriever) {
		m.dedupByID = true
	}
}

// WithParallelism caps the number of index queries in flight at once.
func WithParallelism(n int) MultiQueryOption {
	return func(m *MultiQueryRetriever) {
		if n > 0 {
			m.parallelism = n
		}
	}
}

// WithDefaultLimits overrides the per-variation and global result caps used
// when a request leaves them zero.
func WithDefaultLimits(perVariation, global int) MultiQueryOption {
	return func(m *MultiQueryRetriever) {
		if perVariation > 0 {
			m.perVariationLimit = perVariation
		}
		if global > 0 {
			m.limit = global
		}
	}
}

// NewMultiQueryRetriever creates the semantic retrieval engine. The
// variation generator may be nil, in which case every search runs the
// literal query only.
func NewMultiQueryRetriever(index vector.Index, gen variation.Generator, opts ...MultiQueryOption) *MultiQueryRetriever {
	m := &MultiQueryRetriever{
		index:             index,
		variations:        gen,
		parallelism:       defaultParallelism,
		perVariationLimit: defaultPerVariationLimit,
		limit:             defaultLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// variationResult holds the outcome of one variation's index query. The
// slice of these preserves variation order regardless of completion order.
type variationResult struct {
	query string
	hits  []vector.Hit
	err   error
}

// Search runs the multi-query retrieval algorithm:
//
//  1. Trim the query; an empty query returns an empty result without
//     touching the generator or the index.
//  2. Ask the variation generator for up to five phrasings. A failed or
//     empty generation degrades to the literal query alone.
//  3. Query the index once per variation, concurrently. Each call gets an
//     independent timeout and a single retry; a variation that still fails
//     is recorded with zero hits.
//  4. If every variation failed, run the literal query once more. If that
//     also fails, the whole request fails with a retrieval error.
//  5. Flatten hits in variation order, deduplicate, sort ascending by
//     distance, and truncate to the global limit.
func (m *MultiQueryRetriever) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &Result{Hits: []*Hit{}}, nil
	}

	perVariationLimit := req.PerVariationLimit
	if perVariationLimit <= 0 {
		perVariationLimit = m.perVariationLimit
	}
	limit := req.Limit
	if limit <= 0 {
		limit = m.limit
	}

	queries := m.generateVariations(ctx, query)

	results, err := m.fanOut(ctx, queries, perVariationLimit)
	if err != nil {
		return nil, err
	}

	if allFailed(results) {
		// The literal query is the last resort. When it was already the
		// sole variation there is nothing new to try.
		if len(queries) == 1 && queries[0] == query {
			observability.GlobalMetrics().RecordFailure(EngineSemantic)
			return nil, serrors.Wrap(serrors.ErrCodeRetrievalUnavailable,
				"vector index query failed", results[0].err)
		}
		hits, ferr := m.queryOnce(ctx, query, perVariationLimit)
		if ferr != nil {
			observability.GlobalMetrics().RecordFailure(EngineSemantic)
			return nil, serrors.Wrap(serrors.ErrCodeRetrievalUnavailable,
				"all query variations and literal fallback failed", ferr)
		}
		results = []variationResult{{query: query, hits: hits}}
	}

	result := m.merge(results, limit)

	observability.GlobalMetrics().RecordSearch(EngineSemantic,
		len(result.Variations), result.TotalBeforeDedup, time.Since(start))

	slog.Debug("multi_query_search_complete",
		slog.String("query", query),
		slog.Int("variations", len(result.Variations)),
		slog.Int("raw_hits", result.TotalBeforeDedup),
		slog.Int("results", len(result.Hits)),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// generateVariations returns the query strings to execute. Any generation
// problem degrades to the literal query.
func (m *MultiQueryRetriever) generateVariations(ctx context.Context, query string) []string {
	if m.variations == nil {
		return []string{query}
	}
	queries, err := m.variations.Generate(ctx, query)
	if err != nil || len(queries) == 0 {
		if err != nil {
			slog.Warn("variation generation failed, using literal query",
				slog.String("query", query),
				slog.String("error", err.Error()))
		}
		return []string{query}
	}
	if len(queries) > variation.MaxVariations {
		queries = queries[:variation.MaxVariations]
	}
	return queries
}

// fanOut runs one index query per variation concurrently. Individual
// failures never fail the group; only context cancellation does.
func (m *MultiQueryRetriever) fanOut(ctx context.Context, queries []string, perVariationLimit int) ([]variationResult, error) {
	results := make([]variationResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, m.parallelism)

	var mu sync.Mutex
	for i, q := range queries {
		i, q := i, q

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			hits, err := m.queryOnce(gctx, q, perVariationLimit)

			mu.Lock()
			results[i] = variationResult{query: q, hits: hits, err: err}
			mu.Unlock()

			if err != nil {
				slog.Warn("variation query failed",
					slog.String("variation", q),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// queryOnce runs a single index query under the index timeout policy.
func (m *MultiQueryRetriever) queryOnce(ctx context.Context, query string, k int) ([]vector.Hit, error) {
	var hits []vector.Hit
	err := timeout.Do(ctx, timeout.IndexQueryTimeout, func(ctx context.Context) error {
		var qerr error
		hits, qerr = m.index.Query(ctx, query, k)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func allFailed(results []variationResult) bool {
	for _, r := range results {
		if r.err == nil {
			return false
		}
	}
	return true
}

// merge flattens per-variation hits in variation order, deduplicates them,
// and produces the final ranked list.
func (m *MultiQueryRetriever) merge(results []variationResult, limit int) *Result {
	variations := make([]string, 0, len(results))
	seen := make(map[string]*Hit)
	order := make([]*Hit, 0)
	total := 0

	for _, r := range results {
		variations = append(variations, r.query)
		if r.err != nil {
			continue
		}
		for _, h := range r.hits {
			total++
			key := h.Document
			if m.dedupByID {
				key = h.Metadata.ID
			}
			rep, ok := seen[key]
			if !ok {
				rep = &Hit{
					Document: h.Document,
					Metadata: h.Metadata,
					Distance: h.Distance,
				}
				seen[key] = rep
				order = append(order, rep)
			} else if h.Distance < rep.Distance {
				// The closest candidate represents the group in full.
				// Entries sharing a dedup key can still differ in document
				// or metadata, so fields are never mixed across candidates.
				rep.Document = h.Document
				rep.Metadata = h.Metadata
				rep.Distance = h.Distance
			}
			rep.MatchedBy = append(rep.MatchedBy, r.query)
			rep.MatchCount++
		}
	}

	// Stable sort keeps first-seen order among equal distances.
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Distance < order[j].Distance
	})
	if len(order) > limit {
		order = order[:limit]
	}

	return &Result{
		Hits:             order,
		Variations:       variations,
		TotalBeforeDedup: total,
	}
}
