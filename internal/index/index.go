package index

import "github.com/starford/ansuz/internal/models"

// DocIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocIndex interface {
	UpsertDocument(d DocumentRow, body string, refs []models.Reference) error
	DeleteDocument(path string) error
	AllChecksums() (map[string]string, error)
	Backlinks(target string) ([]string, error)
	Graph() ([]GraphNode, []GraphLink, error)
	SaveReport(r *models.ValidationReport) (int64, error)
	LatestReport() (*models.ValidationReport, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies DocIndex at compile time.
var _ DocIndex = (*DB)(nil)
