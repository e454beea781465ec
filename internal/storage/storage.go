// Package storage defines the persistence interface for indexed documents.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kioku/internal/models"
)

// ErrNotFound is returned when a document does not exist for the given path.
var ErrNotFound = errors.New("document not found")

// Store defines document persistence and similarity search. It is the single
// source of truth for the indexed document set and must be safe for concurrent
// use; one logical operation maps to one statement or transaction.
type Store interface {
	// UpsertDocument inserts the document, or overwrites fingerprint, content,
	// and embedding when a document with the same path exists. IndexedAt is set
	// only on first insertion; UpdatedAt is refreshed on every call. Returns
	// the stored record.
	UpsertDocument(ctx context.Context, doc *models.Document) (*models.Document, error)

	// GetDocumentByPath returns the document for path, or ErrNotFound.
	GetDocumentByPath(ctx context.Context, path string) (*models.Document, error)

	// DeleteDocument removes the document for path. Returns true if a record
	// existed and was removed. Idempotent.
	DeleteDocument(ctx context.Context, path string) (bool, error)

	// ListDocuments returns documents ordered by indexed_at descending with a
	// deterministic path-ascending tie-break. A negative limit returns all
	// documents after offset.
	ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error)

	// ListPaths returns all document paths for lightweight enumeration.
	ListPaths(ctx context.Context) ([]string, error)

	// CountDocuments returns the total number of documents.
	CountDocuments(ctx context.Context) (int64, error)

	// SearchByEmbedding returns documents whose cosine distance to query is at
	// most maxDistance, ordered by distance ascending, with the distance
	// attached to each result. A negative limit returns all matches after offset.
	SearchByEmbedding(ctx context.Context, query []float32, maxDistance float64, limit, offset int) ([]*models.SearchResult, error)

	Close() error
}
