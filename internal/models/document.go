// Package models defines the domain types for Ansuz.
package models

import "time"

// RefKind classifies a reference extracted from a document.
type RefKind string

// Reference kinds. The set is closed: every consumer switches exhaustively
// over these values so a new kind cannot be silently ignored.
const (
	KindLink     RefKind = "link"
	KindImage    RefKind = "image"
	KindInclude  RefKind = "include"
	KindExternal RefKind = "external"
	KindAnchor   RefKind = "anchor"
)

// Reference is a directed pointer from one document to another.
// Source and ResolvedTarget are canonical root-relative paths;
// ResolvedTarget is empty for external, anchor, and unresolvable targets.
type Reference struct {
	Source         string  `json:"source"`
	RawTarget      string  `json:"raw_target"`
	ResolvedTarget string  `json:"resolved_target,omitempty"`
	Line           int     `json:"line"`
	Kind           RefKind `json:"kind"`
	RawText        string  `json:"raw_text"`
}

// Key returns the identity used for reference equality: the resolved target
// when resolution succeeded, the raw target otherwise.
func (r Reference) Key() string {
	if r.ResolvedTarget != "" {
		return r.ResolvedTarget
	}
	return r.RawTarget
}

// IssueType categorises a validation finding.
type IssueType string

// Issue types.
const (
	IssueBrokenReference    IssueType = "broken_reference"
	IssueCircularDependency IssueType = "circular_dependency"
	IssueOrphanedFile       IssueType = "orphaned_file"
	IssueMissingCitation    IssueType = "missing_citation"
	IssueTemplateIncomplete IssueType = "template_incomplete"
	IssueMissingOutput      IssueType = "missing_output"
	IssueParseFailure       IssueType = "parse_failure"
)

// Severity of an issue.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single validation finding.
type Issue struct {
	FilePath string    `json:"file_path"`
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
	Line     int       `json:"line,omitempty"`
	Severity Severity  `json:"severity"`
}

// Summary holds issue counts grouped by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// ValidationReport is the immutable result of one analysis run.
type ValidationReport struct {
	TotalFiles      int        `json:"total_files"`
	TotalReferences int        `json:"total_references"`
	Issues          []Issue    `json:"issues"`
	Cycles          [][]string `json:"cycles"`
	OrphanedFiles   []string   `json:"orphaned_files"`
	StartedAt       time.Time  `json:"started_at"`
	Duration        time.Duration `json:"duration"`
}

// IsValid reports whether the run produced no issues.
func (r *ValidationReport) IsValid() bool {
	return len(r.Issues) == 0
}

// Summary returns issue counts by severity.
func (r *ValidationReport) Summary() Summary {
	var s Summary
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityError:
			s.Errors++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Info++
		}
	}
	return s
}

// DocumentStructure is the structural skeleton of a single document.
type DocumentStructure struct {
	Path            string         `json:"path"`
	Title           string         `json:"title,omitempty"`
	Headers         []string       `json:"headers,omitempty"`
	InternalLinks   []string       `json:"internal_links,omitempty"`
	ExternalLinks   []string       `json:"external_links,omitempty"`
	Citations       []string       `json:"citations,omitempty"`
	IsTemplate      bool           `json:"is_template"`
	TemplateMarkers map[string]int `json:"template_markers,omitempty"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
