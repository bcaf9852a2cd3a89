package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/acervolabs/acervo/domain/embedding"
	"github.com/acervolabs/acervo/domain/search"
)

// fakeSearcher implements Searcher with a canned result and records the last
// request it saw.
type fakeSearcher struct {
	matches []embedding.Match
	err     error
	last    search.Request
}

func (f *fakeSearcher) Search(_ context.Context, request search.Request) ([]embedding.Match, error) {
	f.last = request
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// fakeChecker implements IndexChecker.
type fakeChecker struct {
	indexed bool
	err     error
}

func (f *fakeChecker) IsIndexed(context.Context, embedding.EntityType, int64) (bool, error) {
	return f.indexed, f.err
}

// sendMessage marshals a JSON-RPC request, sends it through HandleMessage,
// and returns the JSONRPCResponse.
func sendMessage(t *testing.T, srv *Server, method string, id int, params map[string]any) mcp.JSONRPCResponse {
	t.Helper()

	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		msg["params"] = params
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	result := srv.MCPServer().HandleMessage(context.Background(), raw)

	resp, ok := result.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T: %+v", result, result)
	}
	return resp
}

// resultJSON re-marshals the Result field through JSON into dst.
func resultJSON(t *testing.T, resp mcp.JSONRPCResponse, dst any) {
	t.Helper()
	b, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		t.Fatalf("unmarshal result into %T: %v", dst, err)
	}
}

// textFromContent extracts the text of the first content item.
func textFromContent(t *testing.T, result mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		return ""
	}
	b, err := json.Marshal(result.Content[0])
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	var tc struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &tc); err != nil {
		t.Fatalf("unmarshal content: %v", err)
	}
	return tc.Text
}

func testMatch() embedding.Match {
	rec := embedding.NewRecord(embedding.EntityTypeContract, 7, "the lessee shall give 30 days notice", []float64{1, 0, 0}).
		WithID(42).
		WithParent(3).
		WithMetadata(map[string]any{"chunk_index": 0})
	return embedding.NewMatch(rec, 0.93)
}

func testServer(searcher *fakeSearcher, checker *fakeChecker) *Server {
	return NewServer(searcher, checker, nil)
}

func initializeParams() map[string]any {
	return map[string]any{
		"protocolVersion": "2025-06-18",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "test-client",
			"version": "0.0.1",
		},
	}
}

func TestServer_Initialize(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{})
	resp := sendMessage(t, srv, "initialize", 1, initializeParams())

	var result mcp.InitializeResult
	resultJSON(t, resp, &result)

	if result.ServerInfo.Name != "acervo" {
		t.Errorf("expected server name acervo, got %s", result.ServerInfo.Name)
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability to be present")
	}
}

func TestServer_ListTools(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/list", 2, nil)

	var result mcp.ListToolsResult
	resultJSON(t, resp, &result)

	if len(result.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(result.Tools))
	}

	tools := map[string]mcp.Tool{}
	for _, tool := range result.Tools {
		tools[tool.Name] = tool
	}

	searchTool, ok := tools["search_knowledge"]
	if !ok {
		t.Fatal("missing tool: search_knowledge")
	}
	if _, ok := tools["check_indexed"]; !ok {
		t.Fatal("missing tool: check_indexed")
	}

	props := searchTool.InputSchema.Properties
	for _, param := range []string{"query", "match_count", "match_threshold", "entity_type", "parent_id"} {
		if _, ok := props[param]; !ok {
			t.Errorf("search_knowledge missing %s parameter", param)
		}
	}
}

func TestServer_SearchKnowledge(t *testing.T) {
	searcher := &fakeSearcher{matches: []embedding.Match{testMatch()}}
	srv := testServer(searcher, &fakeChecker{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search_knowledge",
		"arguments": map[string]any{
			"query":       "notice period",
			"entity_type": "contract",
			"match_count": 3,
			"parent_id":   3,
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	text := textFromContent(t, result)

	var items []struct {
		EntityType string  `json:"entity_type"`
		EntityID   int64   `json:"entity_id"`
		Content    string  `json:"content"`
		Similarity float64 `json:"similarity"`
	}
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		t.Fatalf("unmarshal search results: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 result, got %d", len(items))
	}
	if items[0].EntityType != "contract" {
		t.Errorf("expected entity type contract, got %s", items[0].EntityType)
	}
	if items[0].Similarity != 0.93 {
		t.Errorf("expected similarity 0.93, got %f", items[0].Similarity)
	}

	if searcher.last.MatchCount() != 3 {
		t.Errorf("expected match count 3, got %d", searcher.last.MatchCount())
	}
	if searcher.last.EntityType() != embedding.EntityTypeContract {
		t.Errorf("expected contract filter, got %s", searcher.last.EntityType())
	}
	if searcher.last.ParentID() != 3 {
		t.Errorf("expected parent filter 3, got %d", searcher.last.ParentID())
	}
}

func TestServer_SearchKnowledgeMissingQuery(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name":      "search_knowledge",
		"arguments": map[string]any{},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}
	if text := textFromContent(t, result); !strings.Contains(text, "query is required") {
		t.Errorf("expected error text containing 'query is required', got: %s", text)
	}
}

func TestServer_SearchKnowledgeUnknownEntityType(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "search_knowledge",
		"arguments": map[string]any{
			"query":       "anything",
			"entity_type": "invoice",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}
}

func TestServer_CheckIndexed(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{indexed: true})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "check_indexed",
		"arguments": map[string]any{
			"entity_type": "document",
			"entity_id":   9,
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if result.IsError {
		t.Fatalf("expected success, got error: %s", textFromContent(t, result))
	}

	var status struct {
		EntityType string `json:"entity_type"`
		EntityID   int64  `json:"entity_id"`
		Indexed    bool   `json:"indexed"`
	}
	if err := json.Unmarshal([]byte(textFromContent(t, result)), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if !status.Indexed {
		t.Error("expected indexed true")
	}
	if status.EntityID != 9 {
		t.Errorf("expected entity id 9, got %d", status.EntityID)
	}
}

func TestServer_CheckIndexedMissingID(t *testing.T) {
	srv := testServer(&fakeSearcher{}, &fakeChecker{})
	sendMessage(t, srv, "initialize", 1, initializeParams())

	resp := sendMessage(t, srv, "tools/call", 2, map[string]any{
		"name": "check_indexed",
		"arguments": map[string]any{
			"entity_type": "document",
		},
	})

	var result mcp.CallToolResult
	resultJSON(t, resp, &result)

	if !result.IsError {
		t.Fatal("expected error response")
	}
}
