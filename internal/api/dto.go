package api

import (
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
)

// DocumentDetail is the full document response type (aliased from the
// domain layer).
type DocumentDetail = docservice.DocumentDetail

// ReportResponse wraps a validation report with its severity summary.
type ReportResponse struct {
	Report  *models.ValidationReport `json:"report"`
	Summary models.Summary           `json:"summary"`
	Valid   bool                     `json:"valid"`
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []models.DocumentMetadata `json:"documents"`
	Total     int                       `json:"total"`
}

// IssueListResponse wraps issue listings.
type IssueListResponse struct {
	Issues []models.Issue `json:"issues"`
	Total  int            `json:"total"`
}

// GraphResponse wraps the reference graph payload.
type GraphResponse struct {
	Nodes []index.GraphNode `json:"nodes"`
	Links []index.GraphLink `json:"links"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}
