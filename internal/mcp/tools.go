package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/kioku/internal/search"
	"github.com/hyperjump/kioku/pkg/utils"
)

// snippetLength caps document content returned through tools; MCP clients get
// a preview, not the full body.
const snippetLength = 600

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string  `json:"query" jsonschema:"the search query to find documents"`
	Limit       int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default: all matches)"`
	MaxDistance float64 `json:"max_distance,omitempty" jsonschema:"cosine distance threshold between 0 and 2 (default 0.5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput is a single search result.
type SearchResultOutput struct {
	FilePath string  `json:"file_path"`
	Snippet  string  `json:"snippet"`
	Distance float64 `json:"distance"`
}

// CountInput is the (empty) input schema for the count tool.
type CountInput struct{}

// CountOutput is the output schema for the count tool.
type CountOutput struct {
	Count int64 `json:"count"`
}

// ListInput is the input schema for the list tool.
type ListInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default: all)"`
	Offset int `json:"offset,omitempty" jsonschema:"number of documents to skip"`
}

// ListOutput is the output schema for the list tool.
type ListOutput struct {
	Documents []ListedDocument `json:"documents"`
	Count     int              `json:"count"`
}

// ListedDocument is a single listed document.
type ListedDocument struct {
	FilePath  string `json:"file_path"`
	Snippet   string `json:"snippet"`
	IndexedAt string `json:"indexed_at"`
	UpdatedAt string `json:"updated_at"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        s.names["search_documents"],
		Description: "Semantic search over the indexed markdown documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        s.names["count_documents"],
		Description: "Return the number of indexed documents",
	}, s.handleCount)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        s.names["list_documents"],
		Description: "List indexed documents with content snippets",
	}, s.handleList)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := search.DefaultOptions()
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.MaxDistance > 0 {
		opts.MaxDistance = input.MaxDistance
	}

	response, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(response.Results)),
		Count:   len(response.Results),
	}
	for i, res := range response.Results {
		output.Results[i] = SearchResultOutput{
			FilePath: res.Document.Path,
			Snippet:  snippet(res.Document.Content),
			Distance: res.Distance,
		}
	}

	return nil, output, nil
}

func (s *Server) handleCount(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ CountInput,
) (*mcp.CallToolResult, CountOutput, error) {
	count, err := s.storage.CountDocuments(ctx)
	if err != nil {
		return nil, CountOutput{}, err
	}
	return nil, CountOutput{Count: count}, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	limit := -1
	if input.Limit > 0 {
		limit = input.Limit
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	docs, err := s.storage.ListDocuments(ctx, limit, offset)
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{
		Documents: make([]ListedDocument, len(docs)),
		Count:     len(docs),
	}
	for i, doc := range docs {
		output.Documents[i] = ListedDocument{
			FilePath:  doc.Path,
			Snippet:   snippet(doc.Content),
			IndexedAt: doc.IndexedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt: doc.UpdatedAt.Format("2006-01-02 15:04:05"),
		}
	}

	return nil, output, nil
}

// snippet flattens newlines and truncates the content to snippetLength runes.
func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	return utils.Truncate(flat, snippetLength)
}
