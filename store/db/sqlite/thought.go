package sqlite

import (
	"context"
	"encoding/json"
	"strings"

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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Owner != nil {
		where, args = append(where, "owner = ?"), append(args, *find.Owner)
	}

	query := `
		SELECT id, owner, source, title, summary, content, tags, entities, interpretation, created_ts
		FROM thought
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET ?"
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
		thought, err := scanThought(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, thought)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate thoughts")
	}
	return list, nil
}

func (d *DB) DeleteThoughts(ctx context.Context, owner string) ([]string, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin tx")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM thought WHERE owner = ?", owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select thought ids")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan thought id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "failed to iterate thought ids")
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM thought_fts WHERE thought_id IN (SELECT id FROM thought WHERE owner = ?)",
		owner,
	); err != nil {
		return nil, errors.Wrap(err, "failed to delete fts entries")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM thought WHERE owner = ?", owner); err != nil {
		return nil, errors.Wrap(err, "failed to delete thoughts")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit tx")
	}
	return ids, nil
}

func (d *DB) UpsertThoughtFTS(ctx context.Context, thought *store.Thought) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM thought_fts WHERE thought_id = ?", thought.ID); err != nil {
		return errors.Wrap(err, "failed to clear fts entry")
	}
	if _, err := d.db.ExecContext(ctx,
		"INSERT INTO thought_fts (title, content, tags_text, thought_id) VALUES (?, ?, ?, ?)",
		thought.Title,
		thought.Content,
		strings.Join(thought.Tags, " "),
		thought.ID,
	); err != nil {
		return errors.Wrap(err, "failed to insert fts entry")
	}
	return nil
}

func (d *DB) DeleteThoughtFTS(ctx context.Context, thoughtID string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM thought_fts WHERE thought_id = ?", thoughtID); err != nil {
		return errors.Wrap(err, "failed to delete fts entry")
	}
	return nil
}

// BM25Search ranks thoughts with the FTS5 bm25() function. Lower rank values
// are better matches.
func (d *DB) BM25Search(ctx context.Context, opts *store.BM25SearchOptions) ([]*store.BM25Result, error) {
	query := `
		SELECT t.id, t.owner, t.source, t.title, t.summary, t.content, t.tags, t.entities, t.interpretation, t.created_ts,
			snippet(thought_fts, 1, '', '', '…', 10) AS snip,
			bm25(thought_fts) AS rank
		FROM thought_fts
		JOIN thought t ON t.id = thought_fts.thought_id
		WHERE t.owner = ? AND thought_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`
	rows, err := d.db.QueryContext(ctx, query, opts.Owner, opts.Query, opts.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run bm25 search")
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
			return nil, errors.Wrap(err, "failed to scan bm25 result")
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
		return nil, errors.Wrap(err, "failed to iterate bm25 results")
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThought(row rowScanner) (*store.Thought, error) {
	var thought store.Thought
	var source, tags, entities string
	if err := row.Scan(
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
	return &thought, nil
}

func unmarshalStrings(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
