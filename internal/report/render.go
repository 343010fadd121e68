// Package report renders a validation report as human-readable text.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// categoryOrder fixes the rendering order of issue categories.
var categoryOrder = []models.IssueType{
	models.IssueParseFailure,
	models.IssueBrokenReference,
	models.IssueCircularDependency,
	models.IssueOrphanedFile,
	models.IssueMissingCitation,
	models.IssueTemplateIncomplete,
	models.IssueMissingOutput,
}

var categoryTitles = map[models.IssueType]string{
	models.IssueParseFailure:       "Unreadable documents",
	models.IssueBrokenReference:    "Broken references",
	models.IssueCircularDependency: "Circular dependencies",
	models.IssueOrphanedFile:       "Orphaned documents",
	models.IssueMissingCitation:    "Missing citations",
	models.IssueTemplateIncomplete: "Incomplete templates",
	models.IssueMissingOutput:      "Missing template outputs",
}

// Render writes a formatted listing of the report grouped by issue category,
// with per-category counts and a severity summary.
func Render(w io.Writer, r *models.ValidationReport) {
	fmt.Fprintf(w, "Analyzed %d documents, %d references\n", r.TotalFiles, r.TotalReferences)

	if r.IsValid() {
		fmt.Fprintln(w, "No issues found.")
		return
	}

	byType := make(map[models.IssueType][]models.Issue)
	for _, is := range r.Issues {
		byType[is.Type] = append(byType[is.Type], is)
	}

	for _, t := range categoryOrder {
		issues := byType[t]
		if len(issues) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d)\n", categoryTitles[t], len(issues))
		for _, is := range issues {
			fmt.Fprintf(w, "  %s\n", formatIssue(is))
		}
	}

	s := r.Summary()
	fmt.Fprintf(w, "\n%d errors, %d warnings, %d info\n", s.Errors, s.Warnings, s.Info)
}

func formatIssue(is models.Issue) string {
	var b strings.Builder
	b.WriteString(is.FilePath)
	if is.Line > 0 {
		fmt.Fprintf(&b, ":%d", is.Line)
	}
	b.WriteString(": ")
	b.WriteString(is.Message)
	return b.String()
}
