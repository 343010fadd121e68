// Package docservice coordinates storage, the integrity engine, and the
// index for the API and MCP surfaces.
package docservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/integrity"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/resolve"
	"github.com/starford/ansuz/internal/storage"
)

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path      string                   `json:"path"`
	Content   string                   `json:"content"`
	Structure models.DocumentStructure `json:"structure"`
	Checksum  string                   `json:"checksum"`
	Backlinks []string                 `json:"backlinks"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Service coordinates one docs tree, its index, and the engine config.
type Service struct {
	store  storage.Provider
	db     index.DocIndex
	cfg    integrity.Config
	logger *slog.Logger

	mu     sync.Mutex // serializes analysis runs
	latest *models.ValidationReport

	templates *integrity.TemplateValidator
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.DocIndex, cfg integrity.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		db:        db,
		cfg:       cfg,
		logger:    logger,
		templates: integrity.NewTemplateValidator(cfg.TemplateThreshold, cfg.RequiredMarkers),
	}
}

// RunAnalysis performs one full analysis, syncs the index, persists the
// report, and returns it. Concurrent calls are serialized; each run is
// independent of the last.
func (s *Service) RunAnalysis(ctx context.Context) (*models.ValidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := integrity.Analyze(ctx, s.store, s.cfg)
	if err != nil {
		return nil, err
	}

	if err := index.Sync(s.db, res, s.logger); err != nil {
		s.logger.Warn("analysis: index sync failed", slog.String("error", err.Error()))
	}
	if _, err := s.db.SaveReport(res.Report); err != nil {
		s.logger.Warn("analysis: persist report failed", slog.String("error", err.Error()))
	}

	s.latest = res.Report
	return res.Report, nil
}

// LatestReport returns the most recent report: the in-memory one from this
// process when available, otherwise the last persisted run.
func (s *Service) LatestReport(_ context.Context) (*models.ValidationReport, error) {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if latest != nil {
		return latest, nil
	}
	return s.db.LatestReport()
}

// ListIssues returns the latest report's issues, optionally filtered by type
// and severity.
func (s *Service) ListIssues(ctx context.Context, issueType, severity string) ([]models.Issue, error) {
	r, err := s.LatestReport(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Issue, 0, len(r.Issues))
	for _, is := range r.Issues {
		if issueType != "" && string(is.Type) != issueType {
			continue
		}
		if severity != "" && string(is.Severity) != severity {
			continue
		}
		out = append(out, is)
	}
	return out, nil
}

// GetDocument reads a document from storage, parses its structure, and
// enriches it with backlinks from the index.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	res, _ := parser.Parse(data)

	bl, _ := s.db.Backlinks(path)
	if bl == nil {
		bl = []string{}
	}

	structure := models.DocumentStructure{
		Path:            path,
		Title:           res.Title,
		Headers:         res.Headings,
		TemplateMarkers: res.Markers,
		IsTemplate:      s.templates.IsTemplate(res.Body),
	}
	for _, cand := range res.Candidates {
		switch cand.Kind {
		case models.KindExternal:
			structure.ExternalLinks = append(structure.ExternalLinks, cand.RawTarget)
		case models.KindLink, models.KindImage, models.KindInclude:
			if r := resolve.Resolve(cand.RawTarget, path); r.Kind == resolve.Internal {
				structure.InternalLinks = append(structure.InternalLinks, r.Path)
			}
		case models.KindAnchor:
		}
	}
	structure.Citations = integrity.CitationTargets(structure.InternalLinks, s.cfg.Citations)

	return &DocumentDetail{
		Path:      path,
		Content:   string(data),
		Structure: structure,
		Checksum:  checksum.Sum(data),
		Backlinks: bl,
		UpdatedAt: time.Now(),
	}, nil
}

// ListDocuments returns metadata for every document in the tree.
func (s *Service) ListDocuments(_ context.Context) ([]models.DocumentMetadata, error) {
	return s.store.List("")
}

// Search delegates to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph delegates to the index.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}
