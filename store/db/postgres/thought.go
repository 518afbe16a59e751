package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/thoughtstream/store"
)

func (d *DB) CreateThought(ctx context.Context, create *store.Thought) (*store.Thought, error) {
	tags, err := json.Marshal(create.Tags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tags")
	}
	entities, err := json.Marshal(create.Entities)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal entities")
	}

	stmt := `
		INSERT INTO thought (id, owner, source, title, summary, content, tags, entities, interpretation, created_ts)
		VALUES (` + placeholders(10) + `)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.Owner,
		string(create.Source),
		create.Title,
		create.Summary,
		create.Content,
		string(tags),
		string(entities),
		create.Interpretation,
		create.CreatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create thought")
	}
	return create, nil
}

func (d *DB) ListThoughts(ctx context.Context, find *store.FindThought) ([]*store.Thought, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Owner != nil {
		where, args = append(where, "owner = "+placeholder(len(args)+1)), append(args, *find.Owner)
	}

	query := `
		SELECT id, owner, source, title, summary, content, tags, entities, interpretation, created_ts
		FROM thought
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list thoughts")
	}
	defer rows.Close()

	list := []*store.Thought{}
	for rows.Next() {
		var thought store.Thought
		var source, tags, entities string
		if err := rows.Scan(
			&thought.ID,
			&thought.Owner,
			&source,
			&thought.Title,
			&thought.Summary,
			&thought.Content,
			&tags,
			&entities,
			&thought.Interpretation,
			&thought.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan thought")
		}
		thought.Source = store.Source(source)
		thought.Tags = unmarshalStrings(tags)
		thought.Entities = unmarshalStrings(entities)
		list = append(list, &thought)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate thoughts")
	}
	return list, nil
}

func (d *DB) DeleteThoughts(ctx context.Context, owner string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "DELETE FROM thought WHERE owner = $1 RETURNING id", owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete thoughts")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan deleted id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate deleted ids")
	}
	return ids, nil
}

// UpsertThoughtFTS is a no-op: lexical search on postgres queries the thought
// table directly with ts_rank.
func (d *DB) UpsertThoughtFTS(ctx context.Context, thought *store.Thought) error {
	return nil
}

func (d *DB) DeleteThoughtFTS(ctx context.Context, thoughtID string) error {
	return nil
}

// BM25Search approximates lexical ranking with ts_rank over a generated
// tsvector. Rank is negated so lower values are better, matching the sqlite
// bm25() convention.
func (d *DB) BM25Search(ctx context.Context, opts *store.BM25SearchOptions) ([]*store.BM25Result, error) {
	query := `
		SELECT id, owner, source, title, summary, content, tags, entities, interpretation, created_ts,
			LEFT(content, 200) AS snip,
			-ts_rank(to_tsvector('simple', title || ' ' || content), plainto_tsquery('simple', $2)) AS rank
		FROM thought
		WHERE owner = $1
			AND to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', $2)
		ORDER BY rank
		LIMIT $3
	`
	rows, err := d.db.QueryContext(ctx, query, opts.Owner, opts.Query, opts.Limit)
	if err != nil {
		if isSyntaxError(err) {
			return []*store.BM25Result{}, nil
		}
		return nil, errors.Wrap(err, "failed to run lexical search")
	}
	defer rows.Close()

	results := []*store.BM25Result{}
	for rows.Next() {
		var thought store.Thought
		var source, tags, entities, snippet string
		var rank float64
		if err := rows.Scan(
			&thought.ID,
			&thought.Owner,
			&source,
			&thought.Title,
			&thought.Summary,
			&thought.Content,
			&tags,
			&entities,
			&thought.Interpretation,
			&thought.CreatedTs,
			&snippet,
			&rank,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan lexical result")
		}
		thought.Source = store.Source(source)
		thought.Tags = unmarshalStrings(tags)
		thought.Entities = unmarshalStrings(entities)
		results = append(results, &store.BM25Result{
			Thought: &thought,
			Snippet: snippet,
			Rank:    rank,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate lexical results")
	}
	return results, nil
}

func isSyntaxError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Class() == "42"
}

func unmarshalStrings(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
