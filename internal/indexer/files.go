package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/models"
)

// filenamePattern allow-lists filenames for the mutation API: a leading letter
// or digit followed by letters, digits, dot, dash, underscore, or space.
// Separators are rejected outright rather than stripped, and the resolved path
// is verified to stay under the root, so traversal inputs cannot escape it.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._ -]*$`)

// resolveFilename validates filename and returns the absolute path it refers
// to under the document root. Returns a ValidationError for any rejected input.
func (idx *Indexer) resolveFilename(filename string) (string, error) {
	if filename == "" {
		return "", validationErrorf("filename is required")
	}
	if !idx.MatchesExtension(filename) {
		return "", validationErrorf("filename must end with %s", idx.extension)
	}
	if filepath.Base(filename) != filename {
		return "", validationErrorf("filename must not contain path separators: %s", filename)
	}
	if strings.Contains(filename, "..") || !filenamePattern.MatchString(filename) {
		return "", validationErrorf("filename contains disallowed characters: %s", filename)
	}

	abs, err := filepath.Abs(filepath.Join(idx.root, filename))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", filename, err)
	}
	rel, err := filepath.Rel(idx.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", validationErrorf("filename escapes document root: %s", filename)
	}
	return abs, nil
}

// CreateFile writes a new document file under the root and indexes it.
// Returns ErrExists if the file is already present, a ValidationError for a
// bad filename or empty content, and the indexed document on success.
func (idx *Indexer) CreateFile(ctx context.Context, filename, content string) (*models.Document, error) {
	if content == "" {
		return nil, validationErrorf("content is required")
	}
	path, err := idx.resolveFilename(filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, filename)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", filename, err)
	}
	idx.logger.Debug("created file", zap.String("path", path))
	return idx.SyncFile(ctx, path)
}

// UpdateFile overwrites an existing document file and re-indexes it.
// Returns ErrNotFound if the file does not exist.
func (idx *Indexer) UpdateFile(ctx context.Context, filename, content string) (*models.Document, error) {
	if content == "" {
		return nil, validationErrorf("content is required")
	}
	path, err := idx.resolveFilename(filename)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("stat %s: %w", filename, err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", filename, err)
	}
	idx.logger.Debug("updated file", zap.String("path", path))
	return idx.SyncFile(ctx, path)
}

// DeleteFile removes a document file from disk and its record from the store.
// Returns false when no file was found; deletion of the record is attempted
// either way, so a stale record with no backing file is also cleaned up.
func (idx *Indexer) DeleteFile(ctx context.Context, filename string) (bool, error) {
	path, err := idx.resolveFilename(filename)
	if err != nil {
		return false, err
	}

	removed := true
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("remove %s: %w", filename, err)
		}
		removed = false
	}

	deleted, err := idx.store.DeleteDocument(ctx, path)
	if err != nil {
		return removed, fmt.Errorf("delete document %s: %w", filename, err)
	}
	idx.logger.Debug("deleted file",
		zap.String("path", path),
		zap.Bool("file_removed", removed),
		zap.Bool("record_removed", deleted),
	)
	return removed || deleted, nil
}

// DeleteDocument removes the store record for path without touching disk.
// Used by full reconciliation and exposed for administrative cleanup.
func (idx *Indexer) DeleteDocument(ctx context.Context, path string) (bool, error) {
	return idx.store.DeleteDocument(ctx, path)
}

// ListFilenames returns the bare filename of every indexed document.
func (idx *Indexer) ListFilenames(ctx context.Context) ([]string, error) {
	paths, err := idx.store.ListPaths(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names, nil
}
