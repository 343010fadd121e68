// Package storage defines the read-only docs-tree abstraction consumed by
// the integrity engine.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for document tree access. All paths are
// canonical root-relative paths with forward slashes.
type Provider interface {
	// List walks dir (relative to the docs root) and returns metadata for
	// every document matching the configured extension and ignore filters.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Exists reports whether path names a regular file under the root.
	// The error is non-nil only when the lookup itself failed (for example
	// permission denied), not when the file is merely absent.
	Exists(path string) (bool, error)
	// Root returns the absolute path of the docs root.
	Root() string
}
