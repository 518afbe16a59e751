package v1

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/enrich"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	"github.com/hrygo/thoughtstream/server/middleware"
	"github.com/hrygo/thoughtstream/server/retrieval"
	"github.com/hrygo/thoughtstream/store"
)

// memDriver is an in-memory store driver for handler tests.
type memDriver struct {
	thoughts    []*store.Thought
	bm25Results []*store.BM25Result
	bm25Err     error
}

func (d *memDriver) GetDB() *sql.DB                { return nil }
func (d *memDriver) Close() error                  { return nil }
func (d *memDriver) Migrate(context.Context) error { return nil }

func (d *memDriver) CreateThought(_ context.Context, create *store.Thought) (*store.Thought, error) {
	d.thoughts = append(d.thoughts, create)
	return create, nil
}

func (d *memDriver) ListThoughts(_ context.Context, find *store.FindThought) ([]*store.Thought, error) {
	out := make([]*store.Thought, 0, len(d.thoughts))
	for _, t := range d.thoughts {
		if find.Owner != nil && t.Owner != *find.Owner {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *memDriver) DeleteThoughts(_ context.Context, owner string) ([]string, error) {
	var ids []string
	kept := d.thoughts[:0]
	for _, t := range d.thoughts {
		if t.Owner == owner {
			ids = append(ids, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	d.thoughts = kept
	return ids, nil
}

func (d *memDriver) UpsertThoughtFTS(context.Context, *store.Thought) error { return nil }
func (d *memDriver) DeleteThoughtFTS(context.Context, string) error         { return nil }

func (d *memDriver) BM25Search(context.Context, *store.BM25SearchOptions) ([]*store.BM25Result, error) {
	if d.bm25Err != nil {
		return nil, d.bm25Err
	}
	return d.bm25Results, nil
}

func (d *memDriver) UpsertThoughtEmbedding(context.Context, *store.ThoughtEmbedding) error {
	return nil
}

func (d *memDriver) DeleteThoughtEmbedding(context.Context, string) error { return nil }

func (d *memDriver) SearchThoughtEmbeddings(context.Context, []float32, int) ([]*store.EmbeddingHit, error) {
	return nil, nil
}

func (d *memDriver) ListThoughtIDsWithEmbedding(context.Context) ([]string, error) {
	return nil, nil
}

// stubLLM replies with a fixed string.
type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Chat(context.Context, []ai.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type fixture struct {
	service *APIV1Service
	driver  *memDriver
	index   *vector.MockIndex
	echo    *echo.Echo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	driver := &memDriver{}
	s := store.New(driver, &profile.Profile{})
	t.Cleanup(func() { _ = s.Close() })

	index := vector.NewMockIndex()
	service := &APIV1Service{
		Profile:     &profile.Profile{},
		Store:       s,
		Index:       index,
		Extractor:   enrich.NewFallbackExtractor(),
		Lexical:     retrieval.NewLexicalRetriever(s),
		Semantic:    retrieval.NewMultiQueryRetriever(index, nil),
		rateLimiter: middleware.NewRateLimiter(time.Millisecond, 100),
	}

	e := echo.New()
	service.Register(e)
	return &fixture{service: service, driver: driver, index: index, echo: e}
}

// do performs a request with owner and optional api key headers set.
func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func ownerHeaders(owner string) map[string]string {
	return map[string]string{ownerHeader: owner}
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture(t)
	f.service.Secret = "sekrit"

	// Wrong key.
	rec := f.do(http.MethodGet, "/v1/thoughts", "", map[string]string{
		apiKeyHeader: "nope",
		ownerHeader:  "alice",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Right key, missing owner.
	rec = f.do(http.MethodGet, "/v1/thoughts", "", map[string]string{
		apiKeyHeader: "sekrit",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Right key and owner.
	rec = f.do(http.MethodGet, "/v1/thoughts", "", map[string]string{
		apiKeyHeader: "sekrit",
		ownerHeader:  "alice",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthOpenWhenSecretUnset(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/thoughts", "", ownerHeaders("alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func seedThought(t *testing.T, f *fixture, owner, title, content string) *store.Thought {
	t.Helper()
	thought := &store.Thought{
		ID:        "seed-" + title,
		Owner:     owner,
		Source:    store.SourceManual,
		Title:     title,
		Content:   content,
		CreatedTs: time.Now().Unix(),
	}
	_, err := f.service.Store.CreateThought(context.Background(), thought)
	require.NoError(t, err)
	require.NoError(t, f.index.Upsert(context.Background(), thought.ID, content, vector.Metadata{
		ID:    thought.ID,
		Title: title,
	}))
	return thought
}
