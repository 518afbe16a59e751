package embedding

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/thoughtstream/internal/profile"
	"github.com/hrygo/thoughtstream/plugin/ai/vector"
	"github.com/hrygo/thoughtstream/store"
)

// fakeDriver serves a fixed thought list and a fixed set of already
// embedded ids.
type fakeDriver struct {
	thoughts    []*store.Thought
	embeddedIDs []string
	listErr     error
}

func (d *fakeDriver) GetDB() *sql.DB                { return nil }
func (d *fakeDriver) Close() error                  { return nil }
func (d *fakeDriver) Migrate(context.Context) error { return nil }

func (d *fakeDriver) CreateThought(_ context.Context, create *store.Thought) (*store.Thought, error) {
	return create, nil
}

func (d *fakeDriver) ListThoughts(context.Context, *store.FindThought) ([]*store.Thought, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	return d.thoughts, nil
}

func (d *fakeDriver) DeleteThoughts(context.Context, string) ([]string, error) { return nil, nil }

func (d *fakeDriver) UpsertThoughtFTS(context.Context, *store.Thought) error { return nil }
func (d *fakeDriver) DeleteThoughtFTS(context.Context, string) error         { return nil }

func (d *fakeDriver) BM25Search(context.Context, *store.BM25SearchOptions) ([]*store.BM25Result, error) {
	return nil, nil
}

func (d *fakeDriver) UpsertThoughtEmbedding(context.Context, *store.ThoughtEmbedding) error {
	return nil
}

func (d *fakeDriver) DeleteThoughtEmbedding(context.Context, string) error { return nil }

func (d *fakeDriver) SearchThoughtEmbeddings(context.Context, []float32, int) ([]*store.EmbeddingHit, error) {
	return nil, nil
}

func (d *fakeDriver) ListThoughtIDsWithEmbedding(context.Context) ([]string, error) {
	return d.embeddedIDs, nil
}

func thoughtFixture(id, content string) *store.Thought {
	return &store.Thought{
		ID:        id,
		Owner:     "alice",
		Source:    store.SourceManual,
		Title:     "title " + id,
		Content:   content,
		CreatedTs: 1700000000,
	}
}

func TestRunOnceIndexesMissingThoughts(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{
		thoughts: []*store.Thought{
			thoughtFixture("t1", "first thought"),
			thoughtFixture("t2", "second thought"),
		},
	}
	index := vector.NewMockIndex()

	r := NewRunner(store.New(driver, &profile.Profile{}), index)
	r.RunOnce(ctx)

	hits, err := index.Query(ctx, "first thought", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// A second pass finds nothing missing.
	r.RunOnce(ctx)
	assert.Len(t, r.indexed, 2)
}

func TestRunOnceSkipsAlreadyEmbedded(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{
		thoughts: []*store.Thought{
			thoughtFixture("t1", "first thought"),
			thoughtFixture("t2", "second thought"),
		},
		embeddedIDs: []string{"t1"},
	}
	index := vector.NewMockIndex()

	r := NewRunner(store.New(driver, &profile.Profile{}), index)
	r.seedIndexed(ctx)
	r.RunOnce(ctx)

	hits, err := index.Query(ctx, "thought", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1, "only the missing thought gets pushed")
	assert.Equal(t, "t2", hits[0].Metadata.ID)
}

func TestForgetAllowsReindex(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{
		thoughts: []*store.Thought{thoughtFixture("t1", "first thought")},
	}
	index := vector.NewMockIndex()

	r := NewRunner(store.New(driver, &profile.Profile{}), index)
	r.RunOnce(ctx)
	require.Len(t, r.indexed, 1)

	r.Forget([]string{"t1"})
	assert.Empty(t, r.indexed)

	r.RunOnce(ctx)
	assert.Len(t, r.indexed, 1)
}

func TestRunOnceListFailureLeavesSetUntouched(t *testing.T) {
	ctx := context.Background()
	driver := &fakeDriver{listErr: errors.New("db gone")}
	index := vector.NewMockIndex()

	r := NewRunner(store.New(driver, &profile.Profile{}), index)
	r.RunOnce(ctx)
	assert.Empty(t, r.indexed)
}
