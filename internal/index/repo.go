package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path       string
	Title      string
	Checksum   string
	IsTemplate bool
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is a document node in the reference graph payload.
type GraphNode struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	IsTemplate bool   `json:"is_template"`
}

// GraphLink is a resolved edge in the reference graph payload.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// UpsertDocument inserts or replaces a document, its FTS entry, and its
// outgoing references within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, refs []models.Reference) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	isTemplate := 0
	if d.IsTemplate {
		isTemplate = 1
	}

	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, is_template, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			is_template = excluded.is_template,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, isTemplate, body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when the sqlite_fts5 tag is absent).
	if err := ftsUpsert(tx, d.Path, d.Title, body); err != nil {
		return err
	}

	// Replace references: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, d.Path)
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO refs (source, target, raw_target, kind, line) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(d.Path, r.ResolvedTarget, r.RawTarget, string(r.Kind), r.Line); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing references.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM refs WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// AllChecksums returns every indexed document path mapped to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all document paths with a resolved reference to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM refs WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns every document node and every resolved reference edge.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title, is_template FROM documents ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		var tmpl int
		if err := nodeRows.Scan(&n.Path, &n.Title, &tmpl); err != nil {
			return nil, nil, err
		}
		n.IsTemplate = tmpl != 0
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`SELECT source, target, kind FROM refs WHERE target != '' ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Kind); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// SaveReport persists one analysis run and its issues, returning the run id.
func (db *DB) SaveReport(r *models.ValidationReport) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	cyclesJSON, _ := json.Marshal(r.Cycles)
	orphansJSON, _ := json.Marshal(r.OrphanedFiles)

	res, err := tx.Exec(`
		INSERT INTO runs (started_at, duration_ms, total_files, total_refs, cycles, orphans)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.StartedAt, r.Duration.Milliseconds(), r.TotalFiles, r.TotalReferences, string(cyclesJSON), string(orphansJSON))
	if err != nil {
		return 0, fmt.Errorf("index: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index: run id: %w", err)
	}

	if len(r.Issues) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO issues (run_id, file_path, type, message, line, severity) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("index: prepare issue insert: %w", err)
		}
		defer stmt.Close()
		for _, is := range r.Issues {
			if _, err := stmt.Exec(runID, is.FilePath, string(is.Type), is.Message, is.Line, string(is.Severity)); err != nil {
				return 0, fmt.Errorf("index: insert issue: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LatestReport reconstructs the most recent persisted run, or
// apperr.ErrNoReport when no run exists.
func (db *DB) LatestReport() (*models.ValidationReport, error) {
	var (
		runID       int64
		durationMS  int64
		cyclesJSON  string
		orphansJSON string
		r           models.ValidationReport
	)
	err := db.conn.QueryRow(`
		SELECT id, started_at, duration_ms, total_files, total_refs, cycles, orphans
		FROM runs ORDER BY id DESC LIMIT 1
	`).Scan(&runID, &r.StartedAt, &durationMS, &r.TotalFiles, &r.TotalReferences, &cyclesJSON, &orphansJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNoReport
		}
		return nil, fmt.Errorf("index: latest run: %w", err)
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond

	if err := json.Unmarshal([]byte(cyclesJSON), &r.Cycles); err != nil {
		return nil, fmt.Errorf("index: decode cycles: %w", err)
	}
	if err := json.Unmarshal([]byte(orphansJSON), &r.OrphanedFiles); err != nil {
		return nil, fmt.Errorf("index: decode orphans: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT file_path, type, message, line, severity
		FROM issues WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("index: run issues: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var is models.Issue
		var typ, sev string
		if err := rows.Scan(&is.FilePath, &typ, &is.Message, &is.Line, &sev); err != nil {
			return nil, err
		}
		is.Type = models.IssueType(typ)
		is.Severity = models.Severity(sev)
		r.Issues = append(r.Issues, is)
	}
	return &r, rows.Err()
}
