// Package indexer keeps the document store in sync with the filesystem: full
// reconciliation over a root directory, single-file resync, and file-level
// create/update/delete operations.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/fingerprint"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/storage"
)

// Indexer reconciles the filesystem with the document store.
type Indexer struct {
	store     storage.Store
	embedder  embedding.Embedder
	root      string
	extension string
	logger    *zap.Logger // optional; when set, logs per-file events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file indexed, document deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer over root. Only files with the given extension
// (e.g. ".md", case-insensitive) are considered documents.
func NewIndexer(store storage.Store, embedder embedding.Embedder, root, extension string, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:     store,
		embedder:  embedder,
		root:      filepath.Clean(root),
		extension: strings.ToLower(extension),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Root returns the document root directory.
func (idx *Indexer) Root() string {
	return idx.root
}

// MatchesExtension reports whether path has the document extension.
func (idx *Indexer) MatchesExtension(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == idx.extension
}

// ScanFiles enumerates all document files under root recursively, returning
// absolute paths. Unreadable entries are skipped so a single bad directory
// never aborts the whole scan; an error is returned only when the root itself
// cannot be walked.
func (idx *Indexer) ScanFiles() ([]string, error) {
	if _, err := os.Stat(idx.root); err != nil {
		return nil, fmt.Errorf("scan root %s: %w", idx.root, err)
	}
	var files []string
	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == idx.root {
				return err
			}
			idx.logger.Debug("scan skipping entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if idx.MatchesExtension(path) {
			abs, absErr := filepath.Abs(path)
			if absErr != nil {
				idx.logger.Debug("scan skipping entry", zap.String("path", path), zap.Error(absErr))
				return nil
			}
			files = append(files, abs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", idx.root, err)
	}
	return files, nil
}

// SyncAll reconciles the store with the filesystem: new files are ingested,
// changed files (fingerprint mismatch) re-ingested, unchanged files skipped,
// and store records whose files are gone are deleted. A failure on one file is
// counted and processing continues; SyncAll returns an error only when the
// scan or the initial store listing fails outright.
func (idx *Indexer) SyncAll(ctx context.Context) (models.SyncStats, error) {
	var stats models.SyncStats

	idx.logger.Info("starting full sync", zap.String("root", idx.root))

	files, err := idx.ScanFiles()
	if err != nil {
		return stats, err
	}

	existing, err := idx.store.ListDocuments(ctx, -1, 0)
	if err != nil {
		return stats, fmt.Errorf("list documents: %w", err)
	}
	existingByPath := make(map[string]*models.Document, len(existing))
	for _, doc := range existing {
		existingByPath[doc.Path] = doc
	}

	idx.logger.Info("full sync scan complete",
		zap.Int("files_on_disk", len(files)),
		zap.Int("documents_in_store", len(existing)),
	)

	onDisk := make(map[string]bool, len(files))
	for _, path := range files {
		onDisk[path] = true

		sum, err := fingerprint.File(path)
		if err != nil {
			stats.Errors++
			idx.logger.Warn("sync fingerprint failed", zap.String("path", path), zap.Error(err))
			continue
		}

		prev := existingByPath[path]
		switch {
		case prev == nil:
			if _, err := idx.ingest(ctx, path, sum); err != nil {
				stats.Errors++
				idx.logger.Warn("sync ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			stats.Created++
			idx.logger.Debug("sync indexed new file", zap.String("path", path))
		case prev.Fingerprint != sum:
			if _, err := idx.ingest(ctx, path, sum); err != nil {
				stats.Errors++
				idx.logger.Warn("sync ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			stats.Updated++
			idx.logger.Debug("sync updated changed file", zap.String("path", path))
		default:
			stats.Skipped++
		}
	}

	// Deletion pass runs after the upsert pass so a file renamed mid-scan is
	// not both re-created and deleted.
	for _, doc := range existing {
		if onDisk[doc.Path] {
			continue
		}
		if _, err := idx.store.DeleteDocument(ctx, doc.Path); err != nil {
			stats.Errors++
			idx.logger.Warn("sync delete failed", zap.String("path", doc.Path), zap.Error(err))
			continue
		}
		stats.Deleted++
		idx.logger.Debug("sync deleted missing file", zap.String("path", doc.Path))
	}

	idx.logger.Info("full sync complete", zap.String("stats", stats.String()))
	return stats, nil
}

// SyncFile ingests a single document file: fingerprint, read, embed, upsert.
// Returns a ValidationError for a wrong extension, ErrNotFound when the file
// does not exist, and the underlying error for read/embed/store failures.
func (idx *Indexer) SyncFile(ctx context.Context, path string) (*models.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !idx.MatchesExtension(abs) {
		return nil, validationErrorf("not a %s file: %s", idx.extension, path)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	sum, err := fingerprint.File(abs)
	if err != nil {
		return nil, err
	}
	return idx.ingest(ctx, abs, sum)
}

// ingest reads the file, obtains an embedding, and upserts the document.
// The prior stored state is retained if any step fails.
func (idx *Indexer) ingest(ctx context.Context, path, sum string) (*models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	emb, err := idx.embedder.Embed(ctx, string(content))
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", path, err)
	}

	doc := &models.Document{
		Path:        path,
		Fingerprint: sum,
		Content:     string(content),
		Embedding:   emb,
	}
	stored, err := idx.store.UpsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", path, err)
	}
	return stored, nil
}
