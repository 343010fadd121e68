// Package integrity implements the document structural integrity engine:
// reference scanning, graph construction, cycle/orphan detection, template
// completeness, and citation coverage.
package integrity

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/resolve"
	"github.com/starford/ansuz/internal/storage"
)

// Config holds the per-run knobs of the engine. The zero value disables
// template and citation checks and excludes nothing from orphan detection.
type Config struct {
	// EntryPoints are root-relative paths excluded from orphan detection.
	EntryPoints []string
	// TemplateThreshold is the minimum distinct marker count for a document
	// to count as a template (0 = default).
	TemplateThreshold int
	// RequiredMarkers every template must contain (names without brackets).
	RequiredMarkers []string
	// TemplatesDir and OutputsDir enable the generated-output check when
	// both are non-empty.
	TemplatesDir string
	OutputsDir   string
	// Citations lists category-directory / index-document pairs.
	Citations []CitationPair
}

// ScannedDocument is the per-file product of the scan phase.
type ScannedDocument struct {
	Path       string
	Checksum   string
	Body       string
	Structure  models.DocumentStructure
	References []models.Reference
}

// Result bundles the report with the artifacts the scan produced, so callers
// (index sync, API) do not have to re-parse the tree.
type Result struct {
	Report    *models.ValidationReport
	Graph     *graph.ReferenceGraph
	Documents []ScannedDocument
}

// Analyze runs one full analysis over the docs tree behind store. Each call
// is independent: no state survives between runs, so concurrent invocations
// with different configurations are safe. A failure to enumerate the root is
// fatal; a failure to read or parse one document becomes an issue and the
// run continues.
func Analyze(ctx context.Context, store storage.Provider, cfg Config) (*Result, error) {
	started := time.Now()

	metas, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("integrity: enumerate docs root: %w", err)
	}

	known := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		known[m.Path] = struct{}{}
	}

	docs, scanIssues := scan(ctx, store, metas)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := graph.New()
	for p := range known {
		g.AddFile(p)
	}
	for _, d := range docs {
		for _, ref := range d.References {
			g.AddReference(ref)
		}
	}

	issues := scanIssues
	issues = append(issues, validateReferences(store, docs)...)

	cycles := g.FindCycles()
	for _, cycle := range cycles {
		issues = append(issues, models.Issue{
			FilePath: cycle[0],
			Type:     models.IssueCircularDependency,
			Message:  fmt.Sprintf("circular reference chain: %s", strings.Join(append(append([]string{}, cycle...), cycle[0]), " -> ")),
			Severity: models.SeverityError,
		})
	}

	orphans := g.FindOrphans(toSet(cfg.EntryPoints))
	for _, p := range orphans {
		issues = append(issues, models.Issue{
			FilePath: p,
			Type:     models.IssueOrphanedFile,
			Message:  "document has no incoming references",
			Severity: models.SeverityInfo,
		})
	}

	tmplIssues, err := checkTemplates(store, cfg, docs)
	if err != nil {
		return nil, err
	}
	issues = append(issues, tmplIssues...)

	for i := range docs {
		docs[i].Structure.Citations = CitationTargets(docs[i].Structure.InternalLinks, cfg.Citations)
	}

	checker := NewCrossReferenceChecker(store)
	for _, pair := range cfg.Citations {
		citIssues, err := checker.CheckCategoryCitations(pair.Dir, pair.Index)
		if err != nil {
			return nil, err
		}
		issues = append(issues, citIssues...)
	}

	sortIssues(issues)

	return &Result{
		Report: &models.ValidationReport{
			TotalFiles:      len(metas),
			TotalReferences: g.TotalReferences(),
			Issues:          issues,
			Cycles:          cycles,
			OrphanedFiles:   orphans,
			StartedAt:       started,
			Duration:        time.Since(started),
		},
		Graph:     g,
		Documents: docs,
	}, nil
}

// scan reads and parses every document in parallel. Edge accumulation stays
// on the caller; workers only produce per-document results, merged under a
// single mutex. Per-file failures become issues, never errors.
func scan(ctx context.Context, store storage.Provider, metas []models.DocumentMetadata) ([]ScannedDocument, []models.Issue) {
	var (
		mu     sync.Mutex
		docs   []ScannedDocument
		issues []models.Issue
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, m := range metas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := store.Read(m.Path)
			if err != nil {
				mu.Lock()
				issues = append(issues, readFailureIssue(m.Path, err))
				mu.Unlock()
				return nil
			}
			doc := parseDocument(store, m, data)
			mu.Lock()
			docs = append(docs, doc)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, issues
}

// parseDocument turns raw bytes into a ScannedDocument with resolved
// references and structural metadata.
func parseDocument(store storage.Provider, m models.DocumentMetadata, data []byte) ScannedDocument {
	res, _ := parser.Parse(data)

	doc := ScannedDocument{
		Path:     m.Path,
		Checksum: m.Checksum,
		Body:     res.Body,
		Structure: models.DocumentStructure{
			Path:            m.Path,
			Title:           res.Title,
			Headers:         res.Headings,
			TemplateMarkers: res.Markers,
		},
	}

	for _, cand := range res.Candidates {
		ref := resolveCandidate(store, m.Path, cand)
		doc.References = append(doc.References, ref)
		switch ref.Kind {
		case models.KindExternal:
			doc.Structure.ExternalLinks = append(doc.Structure.ExternalLinks, ref.RawTarget)
		case models.KindLink, models.KindImage, models.KindInclude:
			if ref.ResolvedTarget != "" {
				doc.Structure.InternalLinks = append(doc.Structure.InternalLinks, ref.ResolvedTarget)
			}
		case models.KindAnchor:
			// Same-page fragments carry no structural edge.
		}
	}
	return doc
}

// resolveCandidate canonicalises one candidate. When the source-relative
// interpretation does not name an existing file but the root-relative one
// does, the root-relative path wins (targets written from the project root).
func resolveCandidate(store storage.Provider, source string, cand parser.Candidate) models.Reference {
	ref := models.Reference{
		Source:    source,
		RawTarget: cand.RawTarget,
		Line:      cand.Line,
		Kind:      cand.Kind,
		RawText:   cand.RawText,
	}
	if cand.Kind == models.KindExternal || cand.Kind == models.KindAnchor {
		return ref
	}

	res := resolve.Resolve(cand.RawTarget, source)
	if res.Kind != resolve.Internal {
		switch res.Kind {
		case resolve.External:
			ref.Kind = models.KindExternal
		case resolve.Anchor:
			ref.Kind = models.KindAnchor
		}
		return ref
	}

	if exists, _ := store.Exists(res.Path); !exists {
		if rootRes := resolve.Resolve("/"+cand.RawTarget, source); rootRes.Kind == resolve.Internal && rootRes.Path != res.Path {
			if ok, _ := store.Exists(rootRes.Path); ok {
				res = rootRes
			}
		}
	}

	ref.ResolvedTarget = res.Path
	return ref
}

// validateReferences emits a broken_reference issue for every internal edge
// whose target does not exist on disk. A lookup failure (for example
// permission denied) is reported as broken_reference with the underlying
// cause, since the reference could not be confirmed.
func validateReferences(store storage.Provider, docs []ScannedDocument) []models.Issue {
	var issues []models.Issue
	for _, d := range docs {
		for _, ref := range d.References {
			switch ref.Kind {
			case models.KindExternal, models.KindAnchor:
				continue
			case models.KindLink, models.KindImage, models.KindInclude:
			}
			if ref.ResolvedTarget == "" {
				issues = append(issues, brokenReferenceIssue(ref, "target could not be resolved"))
				continue
			}
			exists, err := store.Exists(ref.ResolvedTarget)
			if err != nil {
				issues = append(issues, brokenReferenceIssue(ref, fmt.Sprintf("target could not be confirmed: %v", err)))
				continue
			}
			if !exists {
				issues = append(issues, brokenReferenceIssue(ref, "target does not exist"))
			}
		}
	}
	return issues
}

// checkTemplates marks template documents, validates required markers, and
// runs the generated-output check when configured.
func checkTemplates(store storage.Provider, cfg Config, docs []ScannedDocument) ([]models.Issue, error) {
	v := NewTemplateValidator(cfg.TemplateThreshold, cfg.RequiredMarkers)

	var issues []models.Issue
	for i := range docs {
		d := &docs[i]
		if len(d.Structure.TemplateMarkers) < v.Threshold {
			continue
		}
		d.Structure.IsTemplate = true
		issues = append(issues, v.ValidateTemplate(d.Body, d.Path)...)
	}

	if cfg.TemplatesDir != "" && cfg.OutputsDir != "" {
		outIssues, err := v.CheckTemplateOutputs(store, cfg.TemplatesDir, cfg.OutputsDir)
		if err != nil {
			return nil, err
		}
		issues = append(issues, outIssues...)
	}
	return issues, nil
}

func brokenReferenceIssue(ref models.Reference, reason string) models.Issue {
	return models.Issue{
		FilePath: ref.Source,
		Type:     models.IssueBrokenReference,
		Message:  fmt.Sprintf("%s: %s (%s)", ref.RawText, reason, ref.Key()),
		Line:     ref.Line,
		Severity: models.SeverityError,
	}
}

func readFailureIssue(path string, err error) models.Issue {
	return models.Issue{
		FilePath: path,
		Type:     models.IssueParseFailure,
		Message:  fmt.Sprintf("document could not be read: %v", err),
		Severity: models.SeverityError,
	}
}

func toSet(paths []string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		out[p] = struct{}{}
	}
	return out
}
