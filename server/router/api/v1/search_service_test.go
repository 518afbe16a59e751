package v1

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/thoughtstream/store"
)

func TestSearch(t *testing.T) {
	f := newFixture(t)
	seedThought(t, f, "alice", "Fishing trip", "Went fishing with dad at the lake last weekend")
	seedThought(t, f, "alice", "Pitch deck", "The investor pitch deck still needs a competition slide")

	rec := f.do(http.MethodPost, "/v1/search",
		`{"query":"fishing with dad at the lake","topK":5}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	top := resp.Results[0]
	assert.Equal(t, "seed-Fishing trip", top.ThoughtID)
	assert.Equal(t, "Fishing trip", top.Title)
	assert.GreaterOrEqual(t, top.MatchCount, 1)
	if len(resp.Results) > 1 {
		assert.LessOrEqual(t, top.Score, resp.Results[1].Score)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFixture(t)
	seedThought(t, f, "alice", "one", "some content")

	rec := f.do(http.MethodPost, "/v1/search", `{"query":"   "}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestSearchSnippetTruncation(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("fishing ", 40) // well over the snippet cap
	seedThought(t, f, "alice", "long", long)

	rec := f.do(http.MethodPost, "/v1/search", `{"query":"fishing"}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	got := resp.Results[0].Snippet
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 203)
}

func TestSnippetCountsRunesNotBytes(t *testing.T) {
	short := strings.Repeat("あ", maxSnippetLength)
	assert.Equal(t, short, snippet(short), "exactly at the cap stays whole")

	long := strings.Repeat("あ", maxSnippetLength+50)
	got := snippet(long)
	assert.Equal(t, strings.Repeat("あ", maxSnippetLength)+"...", got)
	assert.Equal(t, maxSnippetLength+3, utf8.RuneCountInString(got))
}

func TestVapiSearchAlias(t *testing.T) {
	f := newFixture(t)
	seedThought(t, f, "alice", "Fishing trip", "Went fishing with dad")

	rec := f.do(http.MethodPost, "/v1/vapi/tools/search",
		`{"query":"fishing"}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Results)
}

func TestLexicalSearch(t *testing.T) {
	f := newFixture(t)
	f.driver.bm25Results = []*store.BM25Result{
		{
			Thought: &store.Thought{
				ID:        "t1",
				Owner:     "alice",
				Source:    store.SourceManual,
				Title:     "Fishing trip",
				Content:   "Went fishing with dad",
				CreatedTs: time.Now().Unix(),
			},
			Snippet: "Went …fishing… with dad",
			Rank:    -2.0,
		},
	}

	rec := f.do(http.MethodPost, "/v1/search/lexical", `{"query":"fishing"}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "t1", resp.Results[0].ThoughtID)
	assert.Equal(t, -2.0, resp.Results[0].Score)
}

func TestSearchFallsBackToLexicalWithoutIndex(t *testing.T) {
	f := newFixture(t)
	f.service.Semantic = nil
	f.driver.bm25Results = []*store.BM25Result{
		{
			Thought: &store.Thought{ID: "t1", Owner: "alice", Title: "one", Content: "content"},
			Rank:    -1.0,
		},
	}

	rec := f.do(http.MethodPost, "/v1/search", `{"query":"content"}`, ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "t1", resp.Results[0].ThoughtID)
}
