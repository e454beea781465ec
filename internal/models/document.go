// Package models defines core data structures for documents and search results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Document represents one indexed markdown file.
type Document struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
	IndexedAt   time.Time `json:"indexed_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate returns an error listing the missing required fields, or nil.
// Embedding dimension is checked at the configuration boundary, not here.
func (d *Document) Validate() error {
	var missing []string
	if d.Path == "" {
		missing = append(missing, "path")
	}
	if d.Fingerprint == "" {
		missing = append(missing, "fingerprint")
	}
	if d.Content == "" {
		missing = append(missing, "content")
	}
	if len(d.Embedding) == 0 {
		missing = append(missing, "embedding")
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid document: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// SearchResult is a single search hit: the document plus its cosine distance
// to the query embedding (0 = identical direction, 2 = opposite).
type SearchResult struct {
	Document *Document `json:"document"`
	Distance float64   `json:"distance"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	Query     string          `json:"query"`
	QueryTime int64           `json:"query_time_ms"`
}

// SyncStats reports the outcome of a full reconciliation pass.
// One counter is incremented per on-disk file (created, updated, skipped, or
// errors) and one per stale record removed (deleted).
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// String renders the stats in the log-friendly "N new, M updated, ..." form.
func (s SyncStats) String() string {
	return fmt.Sprintf("%d new, %d updated, %d deleted, %d skipped, %d errors",
		s.Created, s.Updated, s.Deleted, s.Skipped, s.Errors)
}
