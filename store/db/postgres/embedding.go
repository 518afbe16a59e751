package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/store"
)

// UpsertThoughtEmbedding inserts or replaces the vector record for a thought.
func (d *DB) UpsertThoughtEmbedding(ctx context.Context, embedding *store.ThoughtEmbedding) error {
	stmt := `
		INSERT INTO thought_embedding (thought_id, document, title, source, created_ts, embedding)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (thought_id)
		DO UPDATE SET
			document = EXCLUDED.document,
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			created_ts = EXCLUDED.created_ts,
			embedding = EXCLUDED.embedding
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.ThoughtID,
		embedding.Document,
		embedding.Title,
		string(embedding.Source),
		embedding.CreatedTs,
		pgvector.NewVector(embedding.Embedding),
	); err != nil {
		return errors.Wrap(err, "failed to upsert thought embedding")
	}
	return nil
}

// DeleteThoughtEmbedding removes the vector record. Removing an absent id is
// a no-op.
func (d *DB) DeleteThoughtEmbedding(ctx context.Context, thoughtID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM thought_embedding WHERE thought_id = $1", thoughtID); err != nil {
		return errors.Wrap(err, "failed to delete thought embedding")
	}
	return nil
}

// SearchThoughtEmbeddings returns the nearest records by cosine distance,
// ascending.
func (d *DB) SearchThoughtEmbeddings(ctx context.Context, embedding []float32, limit int) ([]*store.EmbeddingHit, error) {
	query := `
		SELECT thought_id, document, title, source, created_ts, embedding <=> $1 AS distance
		FROM thought_embedding
		ORDER BY distance
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search thought embeddings")
	}
	defer rows.Close()

	hits := []*store.EmbeddingHit{}
	for rows.Next() {
		var hit store.EmbeddingHit
		var source string
		if err := rows.Scan(
			&hit.ThoughtID,
			&hit.Document,
			&hit.Title,
			&source,
			&hit.CreatedTs,
			&hit.Distance,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan embedding hit")
		}
		hit.Source = store.Source(source)
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate embedding hits")
	}
	return hits, nil
}

func (d *DB) ListThoughtIDsWithEmbedding(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT thought_id FROM thought_embedding")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedded thought ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan thought id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate thought ids")
	}
	return ids, nil
}
