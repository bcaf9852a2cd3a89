// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/search"
)

// Searcher answers semantic queries for MCP tools.
type Searcher interface {
	Search(ctx context.Context, request search.Request) ([]embedding.Match, error)
}

// IndexChecker reports whether an entity has embeddings.
type IndexChecker interface {
	IsIndexed(ctx context.Context, entityType embedding.EntityType, entityID int64) (bool, error)
}

// Server wraps the MCP server with the knowledge-base tools.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	checker   IndexChecker
	logger    *slog.Logger
}

// NewServer creates an MCP server exposing semantic search over the indexed
// legal records.
func NewServer(searcher Searcher, checker IndexChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		searcher: searcher,
		checker:  checker,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"acervo",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	searchTool := mcp.NewTool("search_knowledge",
		mcp.WithDescription("Semantic search across indexed cases, contracts, clauses and documents"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The natural-language search query"),
		),
		mcp.WithNumber("match_count",
			mcp.Description("Maximum number of results (default: 5)"),
		),
		mcp.WithNumber("match_threshold",
			mcp.Description("Minimum cosine similarity between 0 and 1 (default: 0.7)"),
		),
		mcp.WithString("entity_type",
			mcp.Description("Restrict results to one entity type (document, case, contract, clause, docket_entry)"),
		),
		mcp.WithNumber("parent_id",
			mcp.Description("Restrict results to records owned by this parent"),
		),
	)

	mcpServer.AddTool(searchTool, s.handleSearch)

	statusTool := mcp.NewTool("check_indexed",
		mcp.WithDescription("Check whether an entity has been indexed"),
		mcp.WithString("entity_type",
			mcp.Required(),
			mcp.Description("The entity type (document, case, contract, clause, docket_entry)"),
		),
		mcp.WithNumber("entity_id",
			mcp.Required(),
			mcp.Description("The numeric entity identifier"),
		),
	)

	mcpServer.AddTool(statusTool, s.handleCheckIndexed)
}

// handleSearch handles the search_knowledge tool invocation.
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}

	opts := []search.RequestOption{
		search.WithMatchCount(request.GetInt("match_count", search.DefaultMatchCount)),
		search.WithMatchThreshold(request.GetFloat("match_threshold", search.DefaultMatchThreshold)),
	}
	if raw := request.GetString("entity_type", ""); raw != "" {
		entityType, err := embedding.ParseEntityType(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts = append(opts, search.WithEntityType(entityType))
	}
	if parentID := request.GetInt("parent_id", 0); parentID > 0 {
		opts = append(opts, search.WithParentID(int64(parentID)))
	}

	matches, err := s.searcher.Search(ctx, search.NewRequest(query, opts...))
	if err != nil {
		s.logger.Error("search failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type searchResult struct {
		EntityType string         `json:"entity_type"`
		EntityID   int64          `json:"entity_id"`
		ParentID   int64          `json:"parent_id,omitempty"`
		Content    string         `json:"content"`
		Metadata   map[string]any `json:"metadata,omitempty"`
		Similarity float64        `json:"similarity"`
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		rec := m.Record()
		results[i] = searchResult{
			EntityType: rec.EntityType().String(),
			EntityID:   rec.EntityID(),
			ParentID:   rec.ParentID(),
			Content:    rec.Content(),
			Metadata:   rec.Metadata(),
			Similarity: m.Similarity(),
		}
	}

	jsonBytes, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleCheckIndexed handles the check_indexed tool invocation.
func (s *Server) handleCheckIndexed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("entity_type")
	if err != nil {
		return mcp.NewToolResultError("entity_type is required"), nil
	}
	entityType, err := embedding.ParseEntityType(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entityID := request.GetInt("entity_id", 0)
	if entityID <= 0 {
		return mcp.NewToolResultError("entity_id is required"), nil
	}

	if s.checker == nil {
		return mcp.NewToolResultError("index status lookup not configured"), nil
	}

	indexed, err := s.checker.IsIndexed(ctx, entityType, int64(entityID))
	if err != nil {
		s.logger.Error("index status lookup failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to check index status: %v", err)), nil
	}

	type statusResult struct {
		EntityType string `json:"entity_type"`
		EntityID   int64  `json:"entity_id"`
		Indexed    bool   `json:"indexed"`
	}

	jsonBytes, err := json.Marshal(statusResult{
		EntityType: entityType.String(),
		EntityID:   int64(entityID),
		Indexed:    indexed,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
