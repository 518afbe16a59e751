package vector

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MockIndex is an in-memory Index for testing. Distance is one minus the
// Jaccard similarity of lowercased token sets, so results are deterministic
// for any fixed corpus and query.
type MockIndex struct {
	mu   sync.RWMutex
	docs map[string]mockDoc
	seq  int

	// FailQueries makes Query return the given error for matching query
	// text. Used to simulate per-variation backend faults.
	FailQueries map[string]error

	// QueryCount tracks the number of Query calls.
	QueryCount int
}

type mockDoc struct {
	text  string
	meta  Metadata
	order int
}

// NewMockIndex creates an empty MockIndex.
func NewMockIndex() *MockIndex {
	return &MockIndex{docs: make(map[string]mockDoc)}
}

func (m *MockIndex) Upsert(_ context.Context, id, text string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.seq
	if existing, ok := m.docs[id]; ok {
		order = existing.order
	} else {
		m.seq++
	}
	m.docs[id] = mockDoc{text: text, meta: meta, order: order}
	return nil
}

func (m *MockIndex) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *MockIndex) Query(_ context.Context, text string, k int) ([]Hit, error) {
	m.mu.Lock()
	m.QueryCount++
	failErr := m.FailQueries[text]
	m.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		hit   Hit
		order int
	}
	candidates := make([]scored, 0, len(m.docs))
	for _, doc := range m.docs {
		candidates = append(candidates, scored{
			hit: Hit{
				Document: doc.text,
				Metadata: doc.meta,
				Distance: jaccardDistance(text, doc.text),
			},
			order: doc.order,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].hit.Distance != candidates[j].hit.Distance {
			return candidates[i].hit.Distance < candidates[j].hit.Distance
		}
		return candidates[i].order < candidates[j].order
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	hits := make([]Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

func jaccardDistance(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 && len(bTokens) == 0 {
		return 0
	}

	intersection := 0
	for token := range aTokens {
		if _, ok := bTokens[token]; ok {
			intersection++
		}
	}
	union := len(aTokens) + len(bTokens) - intersection
	if union == 0 {
		return 1
	}
	return 1 - float64(intersection)/float64(union)
}

func tokenSet(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, token := range strings.Fields(strings.ToLower(s)) {
		tokens[strings.Trim(token, ".,!?\"'")] = struct{}{}
	}
	return tokens
}
