package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/indexer"
	"github.com/hyperjump/kioku/internal/models"
	"github.com/hyperjump/kioku/internal/search"
)

// JSON-RPC 2.0 error codes.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	Result  any           `json:"result,omitempty"`
	Error   *rpcErrorBody `json:"error,omitempty"`
	ID      any           `json:"id"`
}

// rpcError is an error carrying a JSON-RPC code; handlers return it to select
// the wire representation.
type rpcError struct {
	code    int
	message string
	data    any
}

func (e *rpcError) Error() string { return e.message }

func invalidParams(data any) error {
	return &rpcError{code: codeInvalidParams, message: "Invalid params", data: data}
}

func internalError(data any) error {
	return &rpcError{code: codeInternalError, message: "Internal error", data: data}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondRPCError(w, http.StatusBadRequest, nil,
			&rpcError{code: codeInvalidRequest, message: "Invalid Request", data: "body is not valid JSON"})
		return
	}
	if req.JSONRPC != "2.0" {
		s.respondRPCError(w, http.StatusBadRequest, req.ID,
			&rpcError{code: codeInvalidRequest, message: "Invalid Request", data: "jsonrpc version must be '2.0'"})
		return
	}
	if req.Method == "" {
		s.respondRPCError(w, http.StatusBadRequest, req.ID,
			&rpcError{code: codeInvalidRequest, message: "Invalid Request", data: "method is required"})
		return
	}

	s.logger.Debug("rpc request", zap.String("method", req.Method))

	result, err := s.dispatch(r.Context(), req.Method, req.Params)
	if err != nil {
		var rerr *rpcError
		if !errors.As(err, &rerr) {
			rerr = mapCoreError(err)
		}
		status := http.StatusBadRequest
		switch rerr.code {
		case codeInternalError:
			status = http.StatusInternalServerError
			s.logger.Error("rpc method failed", zap.String("method", req.Method), zap.Error(err))
		case codeMethodNotFound:
			status = http.StatusNotFound
		}
		s.respondRPCError(w, status, req.ID, rerr)
		return
	}
	s.respondJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Result: result, ID: req.ID})
}

// mapCoreError translates core error types into JSON-RPC errors: validation,
// not-found, and conflict map to invalid params; everything else is internal.
func mapCoreError(err error) *rpcError {
	switch {
	case indexer.IsValidationError(err),
		errors.Is(err, indexer.ErrNotFound),
		errors.Is(err, indexer.ErrExists):
		return &rpcError{code: codeInvalidParams, message: "Invalid params", data: err.Error()}
	default:
		return &rpcError{code: codeInternalError, message: "Internal error", data: err.Error()}
	}
}

func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "search":
		return s.rpcSearch(ctx, params)
	case "get_document_count":
		return s.rpcCount(ctx)
	case "list_documents":
		return s.rpcListDocuments(ctx, params)
	case "create_document":
		return s.rpcCreateDocument(ctx, params)
	case "update_document":
		return s.rpcUpdateDocument(ctx, params)
	case "delete_document":
		return s.rpcDeleteDocument(ctx, params)
	case "list_files":
		return s.rpcListFiles(ctx)
	case "sync":
		return s.rpcSync(ctx)
	default:
		return nil, &rpcError{code: codeMethodNotFound, message: "Method not found", data: "method '" + method + "' not found"}
	}
}

type searchParams struct {
	Query       string   `json:"query"`
	Limit       *int     `json:"limit"`
	Offset      int      `json:"offset"`
	MaxDistance *float64 `json:"max_distance"`
}

type searchResultItem struct {
	FilePath  string    `json:"file_path"`
	Content   string    `json:"content"`
	Distance  float64   `json:"distance"`
	IndexedAt time.Time `json:"indexed_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) rpcSearch(ctx context.Context, params json.RawMessage) (any, error) {
	var p searchParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Query == "" {
		return nil, invalidParams("'query' parameter is required and must be a string")
	}
	opts := search.DefaultOptions()
	if p.Limit != nil {
		if *p.Limit < 1 {
			return nil, invalidParams("'limit' must be a positive integer")
		}
		opts.Limit = *p.Limit
	}
	if p.Offset < 0 {
		return nil, invalidParams("'offset' must be a non-negative integer")
	}
	opts.Offset = p.Offset
	if p.MaxDistance != nil {
		if *p.MaxDistance < 0 || *p.MaxDistance > 2 {
			return nil, invalidParams("'max_distance' must be a number between 0 and 2")
		}
		opts.MaxDistance = *p.MaxDistance
	}

	response, err := s.engine.Search(ctx, p.Query, opts)
	if err != nil {
		return nil, err
	}
	items := make([]searchResultItem, len(response.Results))
	for i, res := range response.Results {
		items[i] = searchResultItem{
			FilePath:  res.Document.Path,
			Content:   res.Document.Content,
			Distance:  res.Distance,
			IndexedAt: res.Document.IndexedAt,
			UpdatedAt: res.Document.UpdatedAt,
		}
	}
	return items, nil
}

func (s *Server) rpcCount(ctx context.Context) (any, error) {
	count, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, internalError("failed to get document count: " + err.Error())
	}
	return count, nil
}

type listParams struct {
	Limit  *int `json:"limit"`
	Offset int  `json:"offset"`
}

type documentItem struct {
	FilePath  string    `json:"file_path"`
	Content   string    `json:"content"`
	IndexedAt time.Time `json:"indexed_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) rpcListDocuments(ctx context.Context, params json.RawMessage) (any, error) {
	var p listParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	limit := -1
	if p.Limit != nil {
		if *p.Limit < 1 {
			return nil, invalidParams("'limit' must be a positive integer")
		}
		limit = *p.Limit
	}
	if p.Offset < 0 {
		return nil, invalidParams("'offset' must be a non-negative integer")
	}

	docs, err := s.storage.ListDocuments(ctx, limit, p.Offset)
	if err != nil {
		return nil, internalError("failed to list documents: " + err.Error())
	}
	items := make([]documentItem, len(docs))
	for i, doc := range docs {
		items[i] = documentItem{
			FilePath:  doc.Path,
			Content:   doc.Content,
			IndexedAt: doc.IndexedAt,
			UpdatedAt: doc.UpdatedAt,
		}
	}
	return items, nil
}

type mutationParams struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type mutationResult struct {
	FilePath  string    `json:"file_path"`
	IndexedAt time.Time `json:"indexed_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toMutationResult(doc *models.Document) mutationResult {
	return mutationResult{FilePath: doc.Path, IndexedAt: doc.IndexedAt, UpdatedAt: doc.UpdatedAt}
}

func (s *Server) rpcCreateDocument(ctx context.Context, params json.RawMessage) (any, error) {
	var p mutationParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	doc, err := s.indexer.CreateFile(ctx, p.Filename, p.Content)
	if err != nil {
		return nil, err
	}
	return toMutationResult(doc), nil
}

func (s *Server) rpcUpdateDocument(ctx context.Context, params json.RawMessage) (any, error) {
	var p mutationParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	doc, err := s.indexer.UpdateFile(ctx, p.Filename, p.Content)
	if err != nil {
		return nil, err
	}
	return toMutationResult(doc), nil
}

func (s *Server) rpcDeleteDocument(ctx context.Context, params json.RawMessage) (any, error) {
	var p mutationParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	deleted, err := s.indexer.DeleteFile(ctx, p.Filename)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, invalidParams("document not found: " + p.Filename)
	}
	return map[string]any{"deleted": true, "filename": p.Filename}, nil
}

func (s *Server) rpcListFiles(ctx context.Context) (any, error) {
	files, err := s.indexer.ListFilenames(ctx)
	if err != nil {
		return nil, internalError("list files failed: " + err.Error())
	}
	if files == nil {
		files = []string{}
	}
	return map[string]any{"files": files, "count": len(files)}, nil
}

func (s *Server) rpcSync(ctx context.Context) (any, error) {
	stats, err := s.indexer.SyncAll(ctx)
	if err != nil {
		return nil, internalError("sync failed: " + err.Error())
	}
	return stats, nil
}

func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return invalidParams("params do not match method signature")
	}
	return nil
}

func (s *Server) respondRPCError(w http.ResponseWriter, status int, id any, rerr *rpcError) {
	s.respondJSON(w, status, rpcResponse{
		JSONRPC: "2.0",
		Error:   &rpcErrorBody{Code: rerr.code, Message: rerr.message, Data: rerr.data},
		ID:      id,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
