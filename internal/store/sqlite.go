package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database, one row per
// document with the body serialized as JSON. This backs the local-install
// variant, where no remote document database is configured. Filtering and
// ordering happen in-process; the local dataset is a single user's
// plugins, so full-collection scans are acceptable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Serialized access; the local variant has a single writer anyway.
	db.SetMaxOpenConns(1)

	schema := `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		body       TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeBody(body)
}

func (s *SQLiteStore) SetDocument(ctx context.Context, collection, id string, fields Document, merge bool) error {
	doc := fields
	if merge {
		existing, err := s.GetDocument(ctx, collection, id)
		if err != nil && err != ErrNotFound {
			return err
		}
		if existing != nil {
			merged := existing.Clone()
			for k, v := range fields {
				merged[k] = v
			}
			doc = merged
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body`,
		collection, id, string(body),
	)
	return err
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, collection, id string, fields Document) error {
	existing, err := s.GetDocument(ctx, collection, id)
	if err != nil {
		return err
	}

	updated := existing.Clone()
	for k, v := range fields {
		updated[k] = v
	}

	body, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(body), collection, id,
	)
	return err
}

func (s *SQLiteStore) Query(ctx context.Context, collection string, filters []Filter, opts ...QueryOption) ([]Document, error) {
	o := applyOptions(opts)

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		if matches(doc, filters) {
			results = append(results, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortDocuments(results, o.OrderBy)
	if o.Limit > 0 && int64(len(results)) > o.Limit {
		results = results[:o.Limit]
	}
	return results, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func decodeBody(body string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
