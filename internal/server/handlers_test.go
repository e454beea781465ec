package server

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/embedding"
	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/storage"
)

type rpcTestResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcErrorBody   `json:"error"`
	ID      any             `json:"id"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := embedding.NewMockEmbedder(8)
	idx := indexer.NewIndexer(store, embedder, root, ".md")
	engine := search.NewEngine(store, embedder)

	cfg := &config.Config{Root: root, Extension: ".md"}
	config.ApplyDefaults(cfg)

	return NewServer(engine, idx, store, cfg, zap.NewNop()), root
}

func doRPC(t *testing.T, s *Server, body string) (int, rpcTestResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	s.handleRPC(rec, req)

	var resp rpcTestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return rec.Code, resp
}

func rpcCall(t *testing.T, s *Server, method string, params any) (int, rpcTestResponse) {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	return doRPC(t, s, string(body))
}

func TestHandleRPC_InvalidJSON(t *testing.T) {
	s, _ := newTestServer(t)
	code, resp := doRPC(t, s, "{not json")
	if code != 400 || resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Errorf("got code=%d error=%+v", code, resp.Error)
	}
}

func TestHandleRPC_BadVersion(t *testing.T) {
	s, _ := newTestServer(t)
	_, resp := doRPC(t, s, `{"jsonrpc":"1.0","method":"search","id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Errorf("got %+v", resp.Error)
	}
}

func TestHandleRPC_MissingMethod(t *testing.T) {
	s, _ := newTestServer(t)
	_, resp := doRPC(t, s, `{"jsonrpc":"2.0","id":1}`)
	if resp.Error == nil || resp.Error.Code != codeInvalidRequest {
		t.Errorf("got %+v", resp.Error)
	}
}

func TestHandleRPC_UnknownMethod(t *testing.T) {
	s, _ := newTestServer(t)
	code, resp := rpcCall(t, s, "frobnicate", nil)
	if code != 404 || resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("got code=%d error=%+v", code, resp.Error)
	}
}

func TestRPC_CreateSearchDelete(t *testing.T) {
	s, _ := newTestServer(t)

	code, resp := rpcCall(t, s, "create_document", map[string]any{
		"filename": "note.md",
		"content":  "vector databases and embeddings",
	})
	if code != 200 || resp.Error != nil {
		t.Fatalf("create: code=%d error=%+v", code, resp.Error)
	}
	var created struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(resp.Result, &created); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(created.FilePath) != "note.md" {
		t.Errorf("file_path: got %s", created.FilePath)
	}

	_, resp = rpcCall(t, s, "get_document_count", nil)
	if resp.Error != nil {
		t.Fatalf("count: %+v", resp.Error)
	}
	var count int64
	if err := json.Unmarshal(resp.Result, &count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count: got %d", count)
	}

	_, resp = rpcCall(t, s, "search", map[string]any{
		"query": "vector databases and embeddings",
	})
	if resp.Error != nil {
		t.Fatalf("search: %+v", resp.Error)
	}
	var results []searchResultItem
	if err := json.Unmarshal(resp.Result, &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || filepath.Base(results[0].FilePath) != "note.md" {
		t.Errorf("search results: %+v", results)
	}
	if results[0].Distance > 1e-6 {
		t.Errorf("identical content distance: %f", results[0].Distance)
	}

	_, resp = rpcCall(t, s, "delete_document", map[string]any{"filename": "note.md"})
	if resp.Error != nil {
		t.Fatalf("delete: %+v", resp.Error)
	}
	var deleted struct {
		Deleted  bool   `json:"deleted"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(resp.Result, &deleted); err != nil {
		t.Fatal(err)
	}
	if !deleted.Deleted || deleted.Filename != "note.md" {
		t.Errorf("got %+v", deleted)
	}
}

func TestRPC_SearchValidation(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []map[string]any{
		{},                                  // missing query
		{"query": "q", "limit": 0},          // limit must be positive
		{"query": "q", "offset": -1},        // negative offset
		{"query": "q", "max_distance": 3.0}, // out of range
		{"query": "q", "max_distance": -0.5},
		{"query": "q", "limit": "ten"}, // wrong type
	}
	for i, params := range cases {
		_, resp := rpcCall(t, s, "search", params)
		if resp.Error == nil || resp.Error.Code != codeInvalidParams {
			t.Errorf("case %d: got %+v", i, resp.Error)
		}
	}
}

func TestRPC_CreateConflictAndValidation(t *testing.T) {
	s, _ := newTestServer(t)

	_, resp := rpcCall(t, s, "create_document", map[string]any{"filename": "a.md", "content": "x"})
	if resp.Error != nil {
		t.Fatalf("create: %+v", resp.Error)
	}

	_, resp = rpcCall(t, s, "create_document", map[string]any{"filename": "a.md", "content": "y"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("duplicate create: got %+v", resp.Error)
	}

	for _, filename := range []string{"../evil.md", "sub/dir.md", "bad.txt", ""} {
		_, resp = rpcCall(t, s, "create_document", map[string]any{"filename": filename, "content": "x"})
		if resp.Error == nil || resp.Error.Code != codeInvalidParams {
			t.Errorf("filename %q: got %+v", filename, resp.Error)
		}
	}
}

func TestRPC_UpdateMissing(t *testing.T) {
	s, _ := newTestServer(t)
	_, resp := rpcCall(t, s, "update_document", map[string]any{"filename": "missing.md", "content": "x"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("got %+v", resp.Error)
	}
}

func TestRPC_DeleteMissing(t *testing.T) {
	s, _ := newTestServer(t)
	_, resp := rpcCall(t, s, "delete_document", map[string]any{"filename": "missing.md"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("got %+v", resp.Error)
	}
}

func TestRPC_ListDocumentsAndFiles(t *testing.T) {
	s, _ := newTestServer(t)

	for _, name := range []string{"a.md", "b.md", "c.md"} {
		_, resp := rpcCall(t, s, "create_document", map[string]any{"filename": name, "content": "body of " + name})
		if resp.Error != nil {
			t.Fatalf("create %s: %+v", name, resp.Error)
		}
	}

	_, resp := rpcCall(t, s, "list_documents", map[string]any{"limit": 2})
	if resp.Error != nil {
		t.Fatalf("list: %+v", resp.Error)
	}
	var docs []documentItem
	if err := json.Unmarshal(resp.Result, &docs); err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("limit 2: got %d", len(docs))
	}

	_, resp = rpcCall(t, s, "list_files", nil)
	if resp.Error != nil {
		t.Fatalf("list_files: %+v", resp.Error)
	}
	var files struct {
		Files []string `json:"files"`
		Count int      `json:"count"`
	}
	if err := json.Unmarshal(resp.Result, &files); err != nil {
		t.Fatal(err)
	}
	if files.Count != 3 || len(files.Files) != 3 {
		t.Errorf("got %+v", files)
	}
}

func TestRPC_Sync(t *testing.T) {
	s, _ := newTestServer(t)
	_, resp := rpcCall(t, s, "sync", nil)
	if resp.Error != nil {
		t.Fatalf("sync: %+v", resp.Error)
	}
	var stats struct {
		Created int `json:"created"`
	}
	if err := json.Unmarshal(resp.Result, &stats); err != nil {
		t.Fatal(err)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != 200 {
		t.Errorf("got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("got %+v", body)
	}
}

func TestHandleStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest("GET", "/api/v1/status", nil))
	if rec.Code != 200 {
		t.Errorf("got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["documents"]; !ok {
		t.Errorf("status should report document count: %+v", body)
	}
}
