package store

// Source indicates how a thought was captured.
type Source string

const (
	SourceManual Source = "manual"
	SourceVoice  Source = "voice"
)

// Thought is the canonical unit of captured thought. Content and CreatedTs
// are immutable after creation; there is no update path.
type Thought struct {
	ID             string
	Owner          string
	Source         Source
	Title          string
	Summary        string
	Content        string
	Tags           []string
	Entities       []string
	Interpretation string
	CreatedTs      int64
}

// FindThought is the find condition for thoughts.
type FindThought struct {
	ID     *string
	Owner  *string
	Limit  *int
	Offset *int
}

// ThoughtEmbedding is the derived vector record for a thought, including the
// metadata projection served back from vector search.
type ThoughtEmbedding struct {
	ThoughtID string
	Document  string
	Title     string
	Source    Source
	CreatedTs int64
	Embedding []float32
}

// EmbeddingHit is a vector search result. Distance is cosine distance,
// lower is better.
type EmbeddingHit struct {
	ThoughtID string
	Document  string
	Title     string
	Source    Source
	CreatedTs int64
	Distance  float64
}

// BM25SearchOptions are the options for lexical full-text search.
type BM25SearchOptions struct {
	Owner string
	Query string
	Limit int
}

// BM25Result is a lexical search result. Rank is the raw bm25() value from
// the FTS index; more negative means more relevant.
type BM25Result struct {
	Thought *Thought
	Snippet string
	Rank    float64
}
