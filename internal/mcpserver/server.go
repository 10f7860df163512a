// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the item ledger and content identifiers via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/generator"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/storage"
	"github.com/starford/brewmint/internal/traits"
)

const recordFormatURI = "brewmint://record-format"

// Server wraps the MCP server with brewmint tools.
type Server struct {
	mcp       *server.MCPServer
	records   storage.Provider
	db        ledger.ItemLedger
	traitsDir string
	pattern   string
}

// New creates a new MCP server with all tools registered. records is the
// metadata directory; traitsDir and pattern locate the trait categories.
func New(records storage.Provider, db ledger.ItemLedger, traitsDir, pattern string) *Server {
	s := &Server{records: records, db: db, traitsDir: traitsDir, pattern: pattern}

	s.mcp = server.NewMCPServer(
		"Brewmint",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List generated items in item id order."),
		mcp.WithString("filter", mcp.Description("Optional filter: submitted or pending")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("get_item",
		mcp.WithDescription("Read the metadata document and ledger state of one item."),
		mcp.WithNumber("item_id", mcp.Required(), mcp.Description("Item id as written in the metadata document")),
	), s.getItem)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Search items by name, description or attribute value."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("compute_cid",
		mcp.WithDescription("Compute the content identifier of JSON or raw content. "+
			"JSON is hashed in canonical form, so formatting does not change the result. "+
			"See the "+recordFormatURI+" resource."),
		mcp.WithString("content", mcp.Description("Text content to identify")),
		mcp.WithString("data", mcp.Description("Binary content as a base64 data URI")),
	), s.computeCID)

	s.mcp.AddTool(mcp.NewTool("list_traits",
		mcp.WithDescription("List trait categories, their candidates and the number of distinct combinations."),
	), s.listTraits)

	s.mcp.AddResource(
		mcp.NewResource(recordFormatURI, "Record Format",
			mcp.WithResourceDescription("Metadata document format written for every generated item."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listItems(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("filter", ledger.FilterAll)
	items, total, err := s.db.ListItems(req.GetInt("limit", 50), req.GetInt("offset", 0), filter)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"items": items, "total": total})
}

func (s *Server) getItem(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("item_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.db.GetItem(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: item %d", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.records.Read(it.File)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("metadata file unavailable: %s", it.File)), nil
	}
	return jsonResult(map[string]any{"item": it, "record": json.RawMessage(data)})
}

func (s *Server) searchItems(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no items found"), nil
	}
	return jsonResult(results)
}

func (s *Server) computeCID(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	dataURI := req.GetString("data", "")

	var data []byte
	switch {
	case content != "" && dataURI != "":
		return mcp.NewToolResultError("pass either content or data, not both"), nil
	case content != "":
		data = []byte(content)
	case strings.HasPrefix(dataURI, "data:"):
		decoded, _, err := decodeDataURI(dataURI)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data = decoded
	default:
		return mcp.NewToolResultError("content or a data URI is required"), nil
	}

	id, err := cid.Compute(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(id.String()), nil
}

type traitSummary struct {
	Category   string   `json:"category"`
	TraitType  string   `json:"trait_type"`
	Candidates []string `json:"candidates"`
}

func (s *Server) listTraits(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := traits.Load(s.traitsDir, s.pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary := make([]traitSummary, len(categories))
	for i, c := range categories {
		values := make([]string, len(c.Candidates))
		for j, name := range c.Candidates {
			values[j] = traits.StripExtension(name)
		}
		summary[i] = traitSummary{Category: c.Name, TraitType: traits.TraitType(c.Name), Candidates: values}
	}
	return jsonResult(map[string]any{
		"categories":       summary,
		"max_combinations": generator.MaxCombinations(categories),
	})
}

func (s *Server) readRecordFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
