// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Ansuz integrity tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/docservice"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *docservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("check_integrity",
		mcp.WithDescription("Run a full structural integrity analysis over the documentation tree "+
			"(broken references, circular dependencies, orphaned documents, template completeness, "+
			"citation coverage) and return the validation report."),
	), s.checkIntegrity)

	s.mcp.AddTool(mcp.NewTool("list_issues",
		mcp.WithDescription("List issues from the latest analysis, optionally filtered by type "+
			"(broken_reference, circular_dependency, orphaned_file, missing_citation, "+
			"template_incomplete, missing_output) or severity (error, warning, info)."),
		mcp.WithString("type", mcp.Description("Issue type filter")),
		mcp.WithString("severity", mcp.Description("Severity filter")),
	), s.listIssues)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a Markdown document and its structural metadata (title, headings, "+
			"links, template markers, backlinks)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root-relative path to the document (e.g. adr/0001.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_docs",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocs)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List every document that references the given document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Root-relative path to the document")),
	), s.getBacklinks)

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

func (s *Server) checkIntegrity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.RunAnalysis(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"report":  report,
		"summary": report.Summary(),
		"valid":   report.IsValid(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueType := ""
	if v, err := req.RequireString("type"); err == nil {
		issueType = v
	}
	severity := ""
	if v, err := req.RequireString("severity"); err == nil {
		severity = v
	}

	issues, err := s.svc.ListIssues(ctx, issueType, severity)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(issues) == 0 {
		return mcp.NewToolResultText("no issues found"), nil
	}
	out, _ := json.MarshalIndent(issues, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchDocs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if len(doc.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(doc.Backlinks, "\n")), nil
}
