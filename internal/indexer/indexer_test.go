package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/storage"
)

func newTestIndexer(t *testing.T) (*Indexer, storage.Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	idx := NewIndexer(store, embedding.NewMockEmbedder(8), root, ".md")
	return idx, store, root
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanFiles(t *testing.T) {
	idx, _, root := newTestIndexer(t)
	writeFile(t, root, "a.md", "one")
	writeFile(t, root, "sub/b.md", "two")
	writeFile(t, root, "notes.txt", "ignored")
	writeFile(t, root, "sub/deep/c.MD", "case insensitive")

	files, err := idx.ScanFiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if !filepath.IsAbs(f) {
			t.Errorf("paths should be absolute: %s", f)
		}
	}
}

func TestScanFiles_MissingRoot(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	idx := NewIndexer(store, embedding.NewMockEmbedder(8), "/nonexistent/root", ".md")
	if _, err := idx.ScanFiles(); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestSyncAll_InitialAndIdempotent(t *testing.T) {
	idx, _, root := newTestIndexer(t)
	writeFile(t, root, "a.md", "alpha")
	writeFile(t, root, "b.md", "beta")
	ctx := context.Background()

	stats, err := idx.SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 2 || stats.Updated != 0 || stats.Deleted != 0 || stats.Skipped != 0 || stats.Errors != 0 {
		t.Errorf("initial sync: %s", stats.String())
	}

	// Nothing changed, so everything is skipped.
	stats, err = idx.SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created != 0 || stats.Updated != 0 || stats.Skipped != 2 {
		t.Errorf("second sync: %s", stats.String())
	}
}

func TestSyncAll_DetectsChanges(t *testing.T) {
	idx, _, root := newTestIndexer(t)
	pathA := writeFile(t, root, "a.md", "alpha")
	writeFile(t, root, "b.md", "beta")
	ctx := context.Background()

	if _, err := idx.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(pathA, []byte("alpha v2"), 0644); err != nil {
		t.Fatal(err)
	}
	stats, err := idx.SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 || stats.Skipped != 1 {
		t.Errorf("after edit: %s", stats.String())
	}
}

func TestSyncAll_DeletesMissing(t *testing.T) {
	idx, store, root := newTestIndexer(t)
	pathA := writeFile(t, root, "a.md", "alpha")
	writeFile(t, root, "b.md", "beta")
	ctx := context.Background()

	if _, err := idx.SyncAll(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(pathA); err != nil {
		t.Fatal(err)
	}
	stats, err := idx.SyncAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 || stats.Skipped != 1 {
		t.Errorf("after delete: %s", stats.String())
	}

	count, err := store.CountDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after delete: %d", count)
	}
}

func TestSyncAll_EmptyRoot(t *testing.T) {
	idx, _, _ := newTestIndexer(t)
	stats, err := idx.SyncAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Created+stats.Updated+stats.Deleted+stats.Skipped+stats.Errors != 0 {
		t.Errorf("empty root: %s", stats.String())
	}
}

func TestSyncFile(t *testing.T) {
	idx, store, root := newTestIndexer(t)
	path := writeFile(t, root, "a.md", "alpha")
	ctx := context.Background()

	doc, err := idx.SyncFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "alpha" || doc.Fingerprint == "" || len(doc.Embedding) == 0 {
		t.Errorf("got %+v", doc)
	}

	got, err := store.GetDocumentByPath(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != doc.ID {
		t.Error("stored document should match")
	}
}

func TestSyncFile_WrongExtension(t *testing.T) {
	idx, _, root := newTestIndexer(t)
	path := writeFile(t, root, "notes.txt", "nope")
	_, err := idx.SyncFile(context.Background(), path)
	if !IsValidationError(err) {
		t.Errorf("got %v, want ValidationError", err)
	}
}

func TestSyncFile_Missing(t *testing.T) {
	idx, _, root := newTestIndexer(t)
	_, err := idx.SyncFile(context.Background(), filepath.Join(root, "missing.md"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
