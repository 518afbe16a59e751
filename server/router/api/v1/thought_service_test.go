package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThought(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/thoughts",
		`{"content":"Remember to call the plumber about the kitchen sink","title":"Plumber"}`,
		ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp createThoughtResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ThoughtID)

	require.Len(t, f.driver.thoughts, 1)
	created := f.driver.thoughts[0]
	assert.Equal(t, "alice", created.Owner)
	assert.Equal(t, "manual", string(created.Source))
	assert.Equal(t, "Plumber", created.Title, "provided title survives enrichment fallback")

	// The thought must be queryable from the index right away.
	hits, err := f.index.Query(context.Background(), "plumber kitchen sink", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, resp.ThoughtID, hits[0].Metadata.ID)
}

func TestCreateThoughtValidation(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{}`, `{"content":"   "}`, `not json`} {
		rec := f.do(http.MethodPost, "/v1/thoughts", body, ownerHeaders("alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, f.driver.thoughts)
}

func TestListThoughts(t *testing.T) {
	f := newFixture(t)
	seedThought(t, f, "alice", "one", "first thought")
	seedThought(t, f, "alice", "two", "second thought")
	seedThought(t, f, "bob", "other", "not alice's")

	rec := f.do(http.MethodGet, "/v1/thoughts", "", ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []thoughtResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	for _, item := range out {
		assert.Equal(t, "alice", item.Owner)
		assert.NotNil(t, item.Tags)
		assert.NotNil(t, item.Entities)
	}
}

func TestListThoughtsLimitValidation(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
		rec := f.do(http.MethodGet, "/v1/thoughts?"+q, "", ownerHeaders("alice"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", q)
	}
}

func TestClearThoughts(t *testing.T) {
	f := newFixture(t)
	seedThought(t, f, "alice", "one", "first thought")
	seedThought(t, f, "alice", "two", "second thought")
	seedThought(t, f, "bob", "keep", "bob's thought")

	rec := f.do(http.MethodDelete, "/v1/thoughts/clear", "", ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["deleted"])

	// Bob's thought survives in store and index.
	require.Len(t, f.driver.thoughts, 1)
	assert.Equal(t, "bob", f.driver.thoughts[0].Owner)

	hits, err := f.index.Query(context.Background(), "thought", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "seed-keep", hits[0].Metadata.ID)
}

// recordingTracker captures the ids handed to Forget.
type recordingTracker struct {
	forgotten []string
}

func (r *recordingTracker) Forget(ids []string) {
	r.forgotten = append(r.forgotten, ids...)
}

func TestClearThoughtsNotifiesTracker(t *testing.T) {
	f := newFixture(t)
	tracker := &recordingTracker{}
	f.service.Tracker = tracker

	seedThought(t, f, "alice", "one", "first thought")
	seedThought(t, f, "alice", "two", "second thought")

	rec := f.do(http.MethodDelete, "/v1/thoughts/clear", "", ownerHeaders("alice"))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.ElementsMatch(t, []string{"seed-one", "seed-two"}, tracker.forgotten,
		"deleted ids must reach the reindex tracker")
}

func TestTranscribeWithoutSpeechService(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/thoughts/transcribe", "", ownerHeaders("alice"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSynthesizeWithoutSpeechService(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/tts", `{"text":"hello"}`, ownerHeaders("alice"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
