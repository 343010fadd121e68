package index

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/integrity"
)

// Sync brings the index up to date from one analysis result:
//   - new/changed documents are upserted (checksum comparison skips the rest)
//   - documents removed from disk are deleted from the index
func Sync(db DocIndex, res *integrity.Result, logger *slog.Logger) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(res.Documents))
	for _, d := range res.Documents {
		disk[d.Path] = struct{}{}

		if checksums[d.Path] == d.Checksum {
			continue
		}
		row := DocumentRow{
			Path:       d.Path,
			Title:      d.Structure.Title,
			Checksum:   d.Checksum,
			IsTemplate: d.Structure.IsTemplate,
			UpdatedAt:  time.Now(),
		}
		if err := db.UpsertDocument(row, d.Body, d.References); err != nil {
			logger.Warn("sync: upsert failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", d.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}
