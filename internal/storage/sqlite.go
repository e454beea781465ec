package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/vector"
)

// SQLiteStore implements Store using SQLite. Embeddings are stored as
// little-endian float32 BLOBs; similarity search scans rows and computes
// cosine distance in process, which is adequate for directory-sized corpora.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		fingerprint TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		indexed_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_indexed_at ON documents(indexed_at);
	CREATE INDEX IF NOT EXISTS idx_documents_fingerprint ON documents(fingerprint);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertDocument inserts or overwrites the document keyed by path.
// The upsert is a single statement, so two concurrent upserts on the same path
// commit as whole records (last-committed-wins), never a mix of fields.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := doc.ID
	if id == "" {
		id = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, path, fingerprint, content, embedding, indexed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   content = excluded.content,
		   embedding = excluded.embedding,
		   updated_at = excluded.updated_at`,
		id, doc.Path, doc.Fingerprint, doc.Content, vector.Encode(doc.Embedding), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert document %s: %w", doc.Path, err)
	}
	return s.GetDocumentByPath(ctx, doc.Path)
}

// GetDocumentByPath returns the document for path, or ErrNotFound.
func (s *SQLiteStore) GetDocumentByPath(ctx context.Context, path string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, fingerprint, content, embedding, indexed_at, updated_at
		 FROM documents WHERE path = ?`, path,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes the document for path. Returns true if a row was removed.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListDocuments returns documents ordered by indexed_at descending, path
// ascending on timestamp collisions. A negative limit returns all documents.
func (s *SQLiteStore) ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	query := `SELECT id, path, fingerprint, content, embedding, indexed_at, updated_at
	          FROM documents ORDER BY indexed_at DESC, path ASC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit >= 0 {
		rows, err = s.db.QueryContext(ctx, query+" LIMIT ? OFFSET ?", limit, offset)
	} else {
		// SQLite requires LIMIT before OFFSET; -1 means unbounded.
		rows, err = s.db.QueryContext(ctx, query+" LIMIT -1 OFFSET ?", offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ListPaths returns all document paths in ascending order.
func (s *SQLiteStore) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM documents ORDER BY path ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// SearchByEmbedding scans all documents, computes cosine distance to query,
// filters by maxDistance, and returns results ordered by distance ascending
// (path ascending on exact ties). A negative limit returns all matches.
func (s *SQLiteStore) SearchByEmbedding(ctx context.Context, query []float32, maxDistance float64, limit, offset int) ([]*models.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, fingerprint, content, embedding, indexed_at, updated_at FROM documents`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.SearchResult
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if len(doc.Embedding) != len(query) {
			return nil, fmt.Errorf("embedding dimension mismatch: document %s has %d, query has %d",
				doc.Path, len(doc.Embedding), len(query))
		}
		dist := vector.CosineDistance(query, doc.Embedding)
		if dist <= maxDistance {
			results = append(results, &models.SearchResult{Document: doc, Distance: dist})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Document.Path < results[j].Document.Path
	})

	if offset > 0 {
		if offset >= len(results) {
			return nil, nil
		}
		results = results[offset:]
	}
	if limit >= 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*models.Document, error) {
	var doc models.Document
	var blob []byte
	if err := r.Scan(&doc.ID, &doc.Path, &doc.Fingerprint, &doc.Content, &blob,
		&doc.IndexedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	emb, err := vector.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", doc.Path, err)
	}
	doc.Embedding = emb
	return &doc, nil
}
