package integrity

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/resolve"
	"github.com/starford/ansuz/internal/storage"
)

// CitationPair binds a category directory (architecture notes, decision
// records) to the master index document expected to cite its contents.
type CitationPair struct {
	Dir   string `yaml:"dir" json:"dir"`
	Index string `yaml:"index" json:"index"`
}

// CitationTargets filters resolved reference targets down to those under one
// of the configured category directories: the citations a document carries.
// The result is sorted and deduplicated; nil when no pairs are configured.
func CitationTargets(targets []string, pairs []CitationPair) []string {
	if len(pairs) == 0 || len(targets) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(targets))
	var out []string
	for _, t := range targets {
		if _, ok := seen[t]; ok {
			continue
		}
		for _, p := range pairs {
			if strings.HasPrefix(t, p.Dir+"/") {
				seen[t] = struct{}{}
				out = append(out, t)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// CrossReferenceChecker verifies that documents under designated category
// directories are cited from their master index document.
type CrossReferenceChecker struct {
	store storage.Provider
}

// NewCrossReferenceChecker creates a checker over the given docs tree.
func NewCrossReferenceChecker(store storage.Provider) *CrossReferenceChecker {
	return &CrossReferenceChecker{store: store}
}

// CheckCategoryCitations flags every document under categoryDir whose
// canonical path is not cited by indexDoc. A missing or unreadable index
// document yields a single missing_citation issue against the index path.
func (c *CrossReferenceChecker) CheckCategoryCitations(categoryDir, indexDoc string) ([]models.Issue, error) {
	docs, err := c.store.List(categoryDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("integrity: list category %s: %w", categoryDir, err)
	}

	data, err := c.store.Read(indexDoc)
	if err != nil {
		return []models.Issue{{
			FilePath: indexDoc,
			Type:     models.IssueMissingCitation,
			Message:  fmt.Sprintf("citation index for %s is missing or unreadable", categoryDir),
			Severity: models.SeverityWarning,
		}}, nil
	}

	res, _ := parser.Parse(data)
	cited := make(map[string]struct{}, len(res.Candidates))
	for _, cand := range res.Candidates {
		cited[strings.TrimSpace(cand.RawTarget)] = struct{}{}
		if r := resolve.Resolve(cand.RawTarget, indexDoc); r.Kind == resolve.Internal {
			cited[r.Path] = struct{}{}
		}
	}

	var issues []models.Issue
	for _, d := range docs {
		if d.Path == indexDoc {
			continue
		}
		if _, ok := cited[d.Path]; ok {
			continue
		}
		issues = append(issues, models.Issue{
			FilePath: d.Path,
			Type:     models.IssueMissingCitation,
			Message:  fmt.Sprintf("document is not cited by index %s", indexDoc),
			Severity: models.SeverityWarning,
		})
	}
	sortIssues(issues)
	return issues, nil
}

// ValidateCrossReferences is a standalone broken-reference sweep over the
// whole docs tree, for callers that want reference validation without the
// full graph analysis. It is equivalent to the scan and existence-check
// phases of Analyze.
func (c *CrossReferenceChecker) ValidateCrossReferences() ([]models.Issue, error) {
	metas, err := c.store.List("")
	if err != nil {
		return nil, fmt.Errorf("integrity: list docs: %w", err)
	}

	var issues []models.Issue
	for _, m := range metas {
		data, err := c.store.Read(m.Path)
		if err != nil {
			issues = append(issues, readFailureIssue(m.Path, err))
			continue
		}
		res, _ := parser.Parse(data)
		for _, cand := range res.Candidates {
			ref := resolveCandidate(c.store, m.Path, cand)
			if ref.ResolvedTarget == "" {
				if ref.Kind == models.KindExternal || ref.Kind == models.KindAnchor {
					continue
				}
				issues = append(issues, brokenReferenceIssue(ref, "target could not be resolved"))
				continue
			}
			exists, err := c.store.Exists(ref.ResolvedTarget)
			if err != nil {
				issues = append(issues, brokenReferenceIssue(ref, fmt.Sprintf("target could not be confirmed: %v", err)))
				continue
			}
			if !exists {
				issues = append(issues, brokenReferenceIssue(ref, "target does not exist"))
			}
		}
	}
	sortIssues(issues)
	return issues, nil
}
