// Package parser extracts frontmatter, references, headings, and template
// markers from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/models"
)

var (
	inlineLinkRe = regexp.MustCompile(`(!?)\[[^\]]*\]\(([^()\s]+(?:\s+"[^"]*")?)\)`)
	refDefRe     = regexp.MustCompile(`^\s*\[([^\]^][^\]]*)\]:\s+(\S+)`)
	includeRe    = regexp.MustCompile(`<!--\s*include:\s*(\S+)\s*-->`)
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	markerRe     = regexp.MustCompile(`\[([A-Z_][A-Z0-9_]*)\]`)
	schemeRe     = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// Candidate is an extracted reference before path resolution. Line is
// 1-based relative to the full document (frontmatter lines included).
type Candidate struct {
	RawTarget string
	Line      int
	Kind      models.RefKind
	RawText   string
}

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Headings    []string
	Candidates  []Candidate
	Markers     map[string]int
}

// Parse extracts frontmatter, references, headings, and template markers
// from raw Markdown bytes. Malformed markup never produces an error: tokens
// that do not match are skipped and the scan continues.
func Parse(data []byte) (*Result, error) {
	fm, body, offset := splitFrontmatter(data)

	res := &Result{
		Frontmatter: fm,
		Body:        body,
		Candidates:  ExtractReferences(body, offset),
		Markers:     ExtractMarkers(body, offset),
	}
	res.Headings = extractHeadings(body)
	res.Title = deriveTitle(fm, res.Headings)
	return res, nil
}

// ExtractReferences scans content line by line and returns every reference
// candidate: inline links, reference-style definitions, images, and include
// directives. lineOffset is added to each candidate's line number so callers
// that strip frontmatter still report positions in the original file.
func ExtractReferences(content string, lineOffset int) []Candidate {
	var out []Candidate
	for i, line := range strings.Split(content, "\n") {
		n := i + 1 + lineOffset

		for _, m := range inlineLinkRe.FindAllStringSubmatch(line, -1) {
			target := stripLinkTitle(m[2])
			kind := models.KindLink
			if m[1] == "!" {
				kind = models.KindImage
			}
			out = append(out, classify(target, n, kind, m[0]))
		}

		if m := refDefRe.FindStringSubmatch(line); m != nil {
			out = append(out, classify(m[2], n, models.KindLink, strings.TrimSpace(m[0])))
		}

		for _, m := range includeRe.FindAllStringSubmatch(line, -1) {
			out = append(out, classify(m[1], n, models.KindInclude, m[0]))
		}
	}
	return out
}

// classify applies the external and anchor rules to a raw target.
func classify(target string, line int, kind models.RefKind, raw string) Candidate {
	c := Candidate{RawTarget: target, Line: line, Kind: kind, RawText: raw}
	switch {
	case IsExternal(target):
		c.Kind = models.KindExternal
	case strings.HasPrefix(target, "#") || target == "":
		c.Kind = models.KindAnchor
	}
	return c
}

// IsExternal reports whether target starts with a URI scheme
// (http://, https://, mailto:, etc.).
func IsExternal(target string) bool {
	return schemeRe.MatchString(target)
}

// ExtractMarkers returns every distinct bracketed placeholder marker in
// content mapped to the line of its first occurrence.
func ExtractMarkers(content string, lineOffset int) map[string]int {
	out := make(map[string]int)
	for i, line := range strings.Split(content, "\n") {
		for _, m := range markerRe.FindAllStringSubmatch(line, -1) {
			if _, ok := out[m[1]]; !ok {
				out[m[1]] = i + 1 + lineOffset
			}
		}
	}
	return out
}

// stripLinkTitle removes a trailing quoted title from a link target
// (`x.md "Tooltip"` → `x.md`). Fragment suffixes are left intact for the
// resolver to handle.
func stripLinkTitle(target string) string {
	if i := strings.IndexAny(target, " \t"); i >= 0 {
		target = target[:i]
	}
	return strings.TrimSpace(target)
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body and returns the number of lines consumed so body
// line numbers can be mapped back to the original file. Both delimiters must
// be lines that are exactly "---"; a "----" or "---text" line inside the
// block does not close it. If no frontmatter is found (or the YAML is
// invalid) the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, int) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), 0
	}
	rest := trimmed[len(delim):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return nil, string(data), 0
	}

	searchFrom := 0
	for {
		idx := bytes.Index(rest[searchFrom:], []byte("\n"+delim))
		if idx < 0 {
			return nil, string(data), 0
		}
		idx += searchFrom
		after := rest[idx+1+len(delim):]
		if len(after) > 0 && after[0] != '\n' && after[0] != '\r' {
			searchFrom = idx + 1
			continue
		}

		yamlBlock := rest[:idx]
		body := strings.TrimLeft(string(after), "\n\r")

		var fm map[string]interface{}
		if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
			return nil, string(data), 0
		}

		offset := bytes.Count(data[:len(data)-len(body)], []byte("\n"))
		return fm, body, offset
	}
}

// extractHeadings returns ordered heading texts for every #-style heading.
func extractHeadings(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if m := headingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, m[2])
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, headings []string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	if len(headings) > 0 {
		return headings[0]
	}
	return ""
}
