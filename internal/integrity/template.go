package integrity

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/storage"
)

// DefaultTemplateThreshold is the minimum number of distinct placeholder
// markers for a document to be considered a template.
const DefaultTemplateThreshold = 3

// TemplateValidator checks template documents for internal completeness and
// the presence of generated outputs.
type TemplateValidator struct {
	// Threshold is the minimum distinct marker count for IsTemplate.
	Threshold int
	// RequiredMarkers are marker names (without brackets) every template
	// must contain, e.g. "PROJECT_NAME". Configuration, not convention.
	RequiredMarkers []string
}

// NewTemplateValidator creates a validator with the given threshold
// (0 means DefaultTemplateThreshold) and required marker set.
func NewTemplateValidator(threshold int, required []string) *TemplateValidator {
	if threshold <= 0 {
		threshold = DefaultTemplateThreshold
	}
	return &TemplateValidator{Threshold: threshold, RequiredMarkers: required}
}

// IsTemplate reports whether content contains at least Threshold distinct
// bracketed placeholder markers.
func (v *TemplateValidator) IsTemplate(content string) bool {
	return len(parser.ExtractMarkers(content, 0)) >= v.Threshold
}

// ValidateTemplate flags a template that is missing any required marker.
func (v *TemplateValidator) ValidateTemplate(content, docPath string) []models.Issue {
	markers := parser.ExtractMarkers(content, 0)
	var issues []models.Issue
	for _, req := range v.RequiredMarkers {
		if _, ok := markers[req]; !ok {
			issues = append(issues, models.Issue{
				FilePath: docPath,
				Type:     models.IssueTemplateIncomplete,
				Message:  fmt.Sprintf("template is missing required marker [%s]", req),
				Severity: models.SeverityError,
			})
		}
	}
	return issues
}

// CheckTemplateOutputs requires, for every template under templatesDir, at
// least one file in outputsDir whose name differs from the template's own
// (an actual generated artifact). Absence yields a missing_output issue.
// A templates directory that does not exist means there is nothing to check;
// a missing outputs directory means nothing was generated.
func (v *TemplateValidator) CheckTemplateOutputs(store storage.Provider, templatesDir, outputsDir string) ([]models.Issue, error) {
	templates, err := store.List(templatesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("integrity: list templates: %w", err)
	}
	outputs, err := store.List(outputsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("integrity: list outputs: %w", err)
	}

	names := make(map[string]struct{}, len(outputs))
	for _, o := range outputs {
		names[path.Base(o.Path)] = struct{}{}
	}

	var issues []models.Issue
	for _, t := range templates {
		data, err := store.Read(t.Path)
		if err != nil || !v.IsTemplate(string(data)) {
			continue
		}
		generated := false
		for name := range names {
			if name != path.Base(t.Path) {
				generated = true
				break
			}
		}
		if !generated {
			issues = append(issues, models.Issue{
				FilePath: t.Path,
				Type:     models.IssueMissingOutput,
				Message:  fmt.Sprintf("no generated output found under %s for template %s", outputsDir, path.Base(t.Path)),
				Severity: models.SeverityWarning,
			})
		}
	}
	sortIssues(issues)
	return issues, nil
}

// sortIssues orders issues deterministically: by file, line, type, message.
func sortIssues(issues []models.Issue) {
	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Message < b.Message
	})
}
