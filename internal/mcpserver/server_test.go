package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/integrity"
	"github.com/starford/ansuz/internal/storage"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	docsDir := t.TempDir()
	store, err := storage.NewFS(docsDir, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "ansuz-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := docservice.NewService(store, db, integrity.Config{EntryPoints: []string{"index.md"}}, nil)
	return New(svc), docsDir
}

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call-tool test helper; invoke the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "check_integrity":
		result, err = srv.checkIntegrity(ctx, req)
	case "list_issues":
		result, err = srv.listIssues(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "search_docs":
		result, err = srv.searchDocs(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCheckIntegrity(t *testing.T) {
	srv, docsDir := testServer(t)
	writeDoc(t, docsDir, "index.md", "[a](a.md)\n[bad](missing.md)\n")
	writeDoc(t, docsDir, "a.md", "# A\n")

	r := callTool(t, srv, "check_integrity", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"valid": false`) {
		t.Errorf("report should be invalid: %q", text)
	}
	if !strings.Contains(text, "broken_reference") {
		t.Errorf("missing broken_reference in %q", text)
	}
}

func TestListIssues_Filter(t *testing.T) {
	srv, docsDir := testServer(t)
	writeDoc(t, docsDir, "index.md", "[bad](missing.md)\n")
	writeDoc(t, docsDir, "stray.md", "# stray\n")
	callTool(t, srv, "check_integrity", map[string]interface{}{})

	r := callTool(t, srv, "list_issues", map[string]interface{}{"severity": "info"})
	text := resultText(r)
	if !strings.Contains(text, "stray.md") {
		t.Errorf("orphan missing from info issues: %q", text)
	}
	if strings.Contains(text, "broken_reference") {
		t.Errorf("error-severity issue leaked through filter: %q", text)
	}
}

func TestListIssues_NoAnalysis(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_issues", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error before first analysis")
	}
}

func TestReadDocument(t *testing.T) {
	srv, docsDir := testServer(t)
	writeDoc(t, docsDir, "doc.md", "# Doc\n\ncontent\n")

	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "doc.md"})
	text := resultText(r)
	if !strings.Contains(text, `"title": "Doc"`) {
		t.Errorf("missing title in %q", text)
	}
}

func TestReadDocument_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_document", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, docsDir := testServer(t)
	writeDoc(t, docsDir, "index.md", "[a](a.md)\n")
	writeDoc(t, docsDir, "a.md", "# A\n")
	callTool(t, srv, "check_integrity", map[string]interface{}{})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "a.md"})
	if got := resultText(r); got != "index.md" {
		t.Errorf("backlinks = %q, want index.md", got)
	}
}

func TestSearchDocs(t *testing.T) {
	srv, docsDir := testServer(t)
	writeDoc(t, docsDir, "index.md", "# Runbook\n\nrestart the payments service\n")
	callTool(t, srv, "check_integrity", map[string]interface{}{})

	r := callTool(t, srv, "search_docs", map[string]interface{}{"query": "payments"})
	if !strings.Contains(resultText(r), "index.md") {
		t.Errorf("search result = %q", resultText(r))
	}
}
