// Package retrieval implements the search engines that answer queries over
// captured thoughts: a multi-query semantic engine backed by a vector index
// and a lexical BM25 engine backed by the store's full-text table.
package retrieval

import (
	"context"

	"github.com/hrygo/thoughtstream/plugin/ai/vector"
)

// Engine names used in logs and metrics.
const (
	EngineSemantic = "semantic"
	EngineLexical  = "lexical"
)

// Hit is a single retrieved document after deduplication and ranking.
type Hit struct {
	// Document is the literal indexed text.
	Document string
	// Metadata carries the projection stored alongside the document.
	Metadata vector.Metadata
	// Distance is the smallest distance observed for this document across
	// every query variation that returned it. Lower is closer.
	Distance float64
	// MatchedBy lists the variation strings that surfaced this document, in
	// the order their hits were first seen. A variation that returned the
	// document more than once appears more than once.
	MatchedBy []string
	// MatchCount is the raw number of pre-dedup occurrences of this
	// document, equal to len(MatchedBy).
	MatchCount int
}

// Result is the outcome of one retrieval request.
type Result struct {
	// Hits are sorted ascending by Distance and truncated to the request
	// limit.
	Hits []*Hit
	// Variations are the query strings that were actually executed,
	// including the literal query when it served as fallback.
	Variations []string
	// TotalBeforeDedup counts the raw hits across all variations before
	// deduplication.
	TotalBeforeDedup int
}

// Request describes one retrieval call.
type Request struct {
	// Owner scopes lexical retrieval. The semantic index is a single
	// collection, so the semantic engine ignores it.
	Owner string
	// Query is the user's literal query string.
	Query string
	// PerVariationLimit caps the hits requested from the index for each
	// variation. Zero means the engine default.
	PerVariationLimit int
	// Limit caps the final deduplicated hit list. Zero means the engine
	// default.
	Limit int
}

// Retriever answers retrieval requests. A nil-error return with zero hits
// means the query matched nothing; an error means retrieval itself failed.
type Retriever interface {
	Search(ctx context.Context, req Request) (*Result, error)
}
