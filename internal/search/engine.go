// Package search answers free-text queries by embedding them and ranking
// stored documents by cosine distance.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

// DefaultMaxDistance is the cosine distance threshold applied when the caller
// does not supply one.
const DefaultMaxDistance = 0.5

// Options control a single search call.
type Options struct {
	// Limit caps the number of results; negative means all matches.
	Limit int
	// Offset skips the first N matches for pagination.
	Offset int
	// MaxDistance is the cosine distance threshold in [0, 2].
	MaxDistance float64
}

// DefaultOptions returns options with no limit, no offset, and the default threshold.
func DefaultOptions() Options {
	return Options{Limit: -1, Offset: 0, MaxDistance: DefaultMaxDistance}
}

// Engine answers similarity queries against the document store.
type Engine struct {
	store    storage.Store
	embedder embedding.Embedder
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(store storage.Store, embedder embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search embeds the query and returns documents within the distance threshold,
// ordered by distance ascending. An empty query is an error, not an empty
// result; a query with no matches legitimately returns an empty result set.
// If the embedding provider fails, the whole search fails.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*models.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, indexer.NewValidationError("query is required")
	}
	if opts.MaxDistance < 0 || opts.MaxDistance > 2 {
		return nil, indexer.NewValidationError("max_distance must be between 0 and 2")
	}
	if opts.Offset < 0 {
		return nil, indexer.NewValidationError("offset must be non-negative")
	}

	start := time.Now()
	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := e.store.SearchByEmbedding(ctx, queryEmbedding, opts.MaxDistance, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	elapsed := time.Since(start).Milliseconds()
	e.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Float64("max_distance", opts.MaxDistance),
		zap.Int64("elapsed_ms", elapsed),
	)

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		Query:     query,
		QueryTime: elapsed,
	}, nil
}
