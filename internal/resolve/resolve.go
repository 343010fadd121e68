// Package resolve turns raw reference targets into canonical root-relative
// document paths.
package resolve

import (
	"path"
	"strings"

	"github.com/starford/ansuz/internal/parser"
)

// Kind classifies the outcome of resolving a raw target.
type Kind int

// Resolution outcomes.
const (
	Internal Kind = iota
	External
	Anchor
	Unresolvable
)

// Resolution is the result of resolving one raw target.
type Resolution struct {
	Kind Kind
	// Path is the canonical root-relative target path. Set only for Internal.
	Path string
}

// Resolve canonicalises rawTarget as referenced from sourceDoc (a canonical
// root-relative path). Relative targets resolve against the source
// document's directory; targets with a leading slash are root-relative.
// A #fragment suffix is stripped before resolution and a bare fragment is an
// Anchor. Targets that escape the project root are Unresolvable. Matching is
// always case-sensitive; whether an existence check later honours case is a
// property of the host filesystem, not of this resolver.
//
// Resolution is pure path arithmetic: no filesystem or network I/O.
func Resolve(rawTarget, sourceDoc string) Resolution {
	target := strings.TrimSpace(rawTarget)

	if parser.IsExternal(target) {
		return Resolution{Kind: External}
	}
	if target == "" || strings.HasPrefix(target, "#") {
		return Resolution{Kind: Anchor}
	}

	// Cross-document anchor: validate the file part only.
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
		if target == "" {
			return Resolution{Kind: Anchor}
		}
	}

	// Percent-encoded spaces are common in generated links.
	target = strings.ReplaceAll(target, "%20", " ")

	var joined string
	if strings.HasPrefix(target, "/") {
		joined = strings.TrimPrefix(target, "/")
	} else {
		joined = path.Join(path.Dir(sourceDoc), target)
	}

	cleaned := path.Clean(joined)
	if cleaned == "." || cleaned == "" {
		return Resolution{Kind: Unresolvable}
	}
	// Anything still climbing above the root cannot be a project document.
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return Resolution{Kind: Unresolvable}
	}

	return Resolution{Kind: Internal, Path: cleaned}
}
