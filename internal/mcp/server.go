// Package mcp exposes the document index to MCP clients over stdio.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/kioku/internal/config"
	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/internal/storage"
)

// Server is the MCP server wrapping the search engine and store. The exposed
// tool set is read-only; document mutation stays on the JSON-RPC front-end.
type Server struct {
	engine  *search.Engine
	storage storage.Store
	config  *config.Config
	logger  *zap.Logger
	server  *mcp.Server
	names   map[string]string
}

// NewServer creates an MCP server with the given dependencies. When a tool
// suffix is configured the exposed tool names carry it so that multiple
// instances can be attached to one client without name collisions.
func NewServer(
	engine *search.Engine,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	impl := &mcp.Implementation{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}

	s := &Server{
		engine:  engine,
		storage: store,
		config:  cfg,
		logger:  logger,
		server:  mcp.NewServer(impl, nil),
		names:   toolNames(cfg.MCP.ToolSuffix),
	}

	s.registerTools()

	return s
}

// toolNames maps the fixed base tool names to their exposed names. The mapping
// is computed once at construction; handlers never depend on it.
func toolNames(suffix string) map[string]string {
	names := map[string]string{
		"search_documents": "search_documents",
		"count_documents":  "count_documents",
		"list_documents":   "list_documents",
	}
	if suffix == "" {
		return names
	}
	for base := range names {
		names[base] = base + "_" + suffix
	}
	return names
}

// Run starts the MCP server over stdio. It blocks until the context is
// cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server",
		zap.String("name", s.config.MCP.Name),
		zap.String("version", s.config.MCP.Version),
	)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
