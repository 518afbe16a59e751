package vector

import (
	"context"
	"encoding/json"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/plugin/ai"
	"github.com/hrygo/thoughtstream/plugin/ai/timeout"
)

// ChromaIndex is an Index backed by a Chroma collection. Embeddings are
// computed client-side so the collection needs no server-side embedding
// function.
type ChromaIndex struct {
	collection chromago.Collection
	embedder   ai.EmbeddingService
}

// NewChromaIndex creates an Index on top of an existing Chroma collection.
func NewChromaIndex(collection chromago.Collection, embedder ai.EmbeddingService) *ChromaIndex {
	return &ChromaIndex{collection: collection, embedder: embedder}
}

// OpenChromaCollection connects to a Chroma server and returns the named
// collection, creating it when absent.
func OpenChromaCollection(ctx context.Context, baseURL, name string) (chromago.Client, chromago.Collection, error) {
	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create chroma client")
	}
	collection, err := client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("created_by", "thoughtstream"),
			),
		),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrapf(err, "failed to get or create collection %q", name)
	}
	return client, collection, nil
}

func (c *ChromaIndex) Upsert(ctx context.Context, id, text string, meta Metadata) error {
	vec, err := c.embed(ctx, text)
	if err != nil {
		return err
	}

	docMeta := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute("id", meta.ID),
		chromago.NewStringAttribute("title", meta.Title),
		chromago.NewStringAttribute("created_at", meta.CreatedAt.UTC().Format(time.RFC3339)),
		chromago.NewStringAttribute("source", meta.Source),
	)

	return timeout.Do(ctx, timeout.IndexWriteTimeout, func(ctx context.Context) error {
		return c.collection.Upsert(ctx,
			chromago.WithIDs(chromago.DocumentID(id)),
			chromago.WithTexts(text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vec)),
			chromago.WithMetadatas(docMeta),
		)
	})
}

func (c *ChromaIndex) Remove(ctx context.Context, id string) error {
	return timeout.Do(ctx, timeout.IndexWriteTimeout, func(ctx context.Context) error {
		return c.collection.Delete(ctx, chromago.WithIDsDelete(chromago.DocumentID(id)))
	})
}

func (c *ChromaIndex) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var result chromago.QueryResult
	err = timeout.Do(ctx, timeout.IndexQueryTimeout, func(ctx context.Context) error {
		var queryErr error
		result, queryErr = c.collection.Query(ctx,
			chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vec)),
			chromago.WithNResults(k),
		)
		return queryErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "chroma query failed")
	}

	documentGroups := result.GetDocumentsGroups()
	metadataGroups := result.GetMetadatasGroups()
	distanceGroups := result.GetDistancesGroups()
	if len(documentGroups) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(documentGroups[0]))
	for i, doc := range documentGroups[0] {
		hit := Hit{Document: doc.ContentString()}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			hit.Distance = float64(distanceGroups[0][i])
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			hit.Metadata = decodeMetadata(metadataGroups[0][i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// decodeMetadata converts a chroma DocumentMetadata into the typed projection.
// DocumentMetadata exposes no public accessor for arbitrary values, so it goes
// through a JSON round-trip.
func decodeMetadata(meta chromago.DocumentMetadata) Metadata {
	var out Metadata
	if meta == nil {
		return out
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return out
	}
	var fields struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		CreatedAt string `json:"created_at"`
		Source    string `json:"source"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out
	}
	out.ID = fields.ID
	out.Title = fields.Title
	out.Source = fields.Source
	if ts, err := time.Parse(time.RFC3339, fields.CreatedAt); err == nil {
		out.CreatedAt = ts
	}
	return out
}

func (c *ChromaIndex) embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := timeout.Do(ctx, timeout.EmbeddingTimeout, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = c.embedder.Embed(ctx, text)
		return embedErr
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed text")
	}
	return vec, nil
}
