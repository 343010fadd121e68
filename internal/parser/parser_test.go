package parser

import (
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func TestExtractReferences_InlineLink(t *testing.T) {
	cands := ExtractReferences("intro\nSee [Guide](guide.md) for details.", 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	c := cands[0]
	if c.RawTarget != "guide.md" {
		t.Errorf("target = %q, want guide.md", c.RawTarget)
	}
	if c.Line != 2 {
		t.Errorf("line = %d, want 2", c.Line)
	}
	if c.Kind != models.KindLink {
		t.Errorf("kind = %q, want link", c.Kind)
	}
	if c.RawText != "[Guide](guide.md)" {
		t.Errorf("raw = %q", c.RawText)
	}
}

func TestExtractReferences_Image(t *testing.T) {
	cands := ExtractReferences("![diagram](img/arch.png)", 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	if cands[0].Kind != models.KindImage {
		t.Errorf("kind = %q, want image", cands[0].Kind)
	}
	if cands[0].RawTarget != "img/arch.png" {
		t.Errorf("target = %q", cands[0].RawTarget)
	}
}

func TestExtractReferences_ReferenceDefinition(t *testing.T) {
	cands := ExtractReferences("[design]: design/overview.md\ntext", 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	if cands[0].RawTarget != "design/overview.md" || cands[0].Kind != models.KindLink {
		t.Errorf("cand = %+v", cands[0])
	}
}

func TestExtractReferences_Include(t *testing.T) {
	cands := ExtractReferences("<!-- include: shared/header.md -->", 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	if cands[0].Kind != models.KindInclude || cands[0].RawTarget != "shared/header.md" {
		t.Errorf("cand = %+v", cands[0])
	}
}

func TestExtractReferences_ExternalAndAnchor(t *testing.T) {
	body := "[site](https://example.com)\n[mail](mailto:a@b.c)\n[top](#heading)"
	cands := ExtractReferences(body, 0)
	if len(cands) != 3 {
		t.Fatalf("len(cands) = %d, want 3", len(cands))
	}
	if cands[0].Kind != models.KindExternal {
		t.Errorf("https kind = %q, want external", cands[0].Kind)
	}
	if cands[1].Kind != models.KindExternal {
		t.Errorf("mailto kind = %q, want external", cands[1].Kind)
	}
	if cands[2].Kind != models.KindAnchor {
		t.Errorf("fragment kind = %q, want anchor", cands[2].Kind)
	}
}

func TestExtractReferences_MalformedDoesNotAbort(t *testing.T) {
	body := "[broken](x\n[[weird]] ](\nthen [ok](good.md)"
	cands := ExtractReferences(body, 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1 (only the well-formed link)", len(cands))
	}
	if cands[0].RawTarget != "good.md" {
		t.Errorf("target = %q", cands[0].RawTarget)
	}
}

func TestExtractReferences_LinkTitleStripped(t *testing.T) {
	cands := ExtractReferences(`[x](notes.md "Notes")`, 0)
	if len(cands) != 1 {
		t.Fatalf("len(cands) = %d, want 1", len(cands))
	}
	if cands[0].RawTarget != "notes.md" {
		t.Errorf("target = %q, want notes.md", cands[0].RawTarget)
	}
}

func TestExtractMarkers_FirstLineWins(t *testing.T) {
	body := "# [PROJECT_NAME]\n\n[DESCRIPTION]\nmore [PROJECT_NAME]"
	markers := ExtractMarkers(body, 0)
	if len(markers) != 2 {
		t.Fatalf("len(markers) = %d, want 2", len(markers))
	}
	if markers["PROJECT_NAME"] != 1 {
		t.Errorf("PROJECT_NAME line = %d, want 1", markers["PROJECT_NAME"])
	}
	if markers["DESCRIPTION"] != 3 {
		t.Errorf("DESCRIPTION line = %d, want 3", markers["DESCRIPTION"])
	}
}

func TestParse_FrontmatterOffset(t *testing.T) {
	input := []byte("---\ntitle: Guide\n---\n[a](a.md)\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Guide" {
		t.Errorf("title = %q, want Guide", r.Title)
	}
	if len(r.Candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(r.Candidates))
	}
	// Frontmatter occupies lines 1-3, so the link is on line 4.
	if r.Candidates[0].Line != 4 {
		t.Errorf("line = %d, want 4", r.Candidates[0].Line)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_FrontmatterDashRunNotClosing(t *testing.T) {
	// A "----" line inside the block must not close it early. The block as a
	// whole is then invalid YAML, so the entire content falls back to body
	// and line numbers stay untouched.
	input := []byte("---\ntitle: X\n----\ndesc: y\n---\n# Body\n[a](a.md)\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", r.Frontmatter)
	}
	if len(r.Candidates) != 1 {
		t.Fatalf("len(candidates) = %d, want 1", len(r.Candidates))
	}
	if r.Candidates[0].Line != 7 {
		t.Errorf("line = %d, want 7", r.Candidates[0].Line)
	}
}

func TestParse_FrontmatterCloseAtEOF(t *testing.T) {
	r, err := Parse([]byte("---\ntitle: X\n---"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "X" {
		t.Errorf("title = %q, want X", r.Title)
	}
	if r.Body != "" {
		t.Errorf("body = %q, want empty", r.Body)
	}
}

func TestParse_FrontmatterOpenerMustBeOwnLine(t *testing.T) {
	r, err := Parse([]byte("----\n# Body\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("frontmatter = %v, want nil", r.Frontmatter)
	}
	if r.Title != "Body" {
		t.Errorf("title = %q, want Body", r.Title)
	}
}

func TestParse_HeadingsAndTitle(t *testing.T) {
	input := []byte("# Overview\n\ntext\n\n## Details\n### Sub\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Overview", "Details", "Sub"}
	if len(r.Headings) != len(want) {
		t.Fatalf("headings = %v, want %v", r.Headings, want)
	}
	for i := range want {
		if r.Headings[i] != want[i] {
			t.Errorf("headings[%d] = %q, want %q", i, r.Headings[i], want[i])
		}
	}
	if r.Title != "Overview" {
		t.Errorf("title = %q, want Overview", r.Title)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	input := []byte("---\ntitle: FM Title\n---\n# H1 Title\n")
	r, _ := Parse(input)
	if r.Title != "FM Title" {
		t.Errorf("title = %q, want FM Title", r.Title)
	}
}

func TestIsExternal(t *testing.T) {
	cases := map[string]bool{
		"https://example.com": true,
		"http://x":            true,
		"mailto:a@b":          true,
		"ftp://files":         true,
		"docs/guide.md":       false,
		"./a.md":              false,
		"../up.md":            false,
	}
	for target, want := range cases {
		if got := IsExternal(target); got != want {
			t.Errorf("IsExternal(%q) = %v, want %v", target, got, want)
		}
	}
}
