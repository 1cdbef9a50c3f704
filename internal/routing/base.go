// internal/routing/base.go
//
// Base-path mounting and link building.
//
// Context
// -------
// The service may live under a sub-directory of a larger site (for example
// `https://example.com/analytics/`).  Instead of rewriting request paths,
// the prefix is a configuration value (`http.base_path`): Mount attaches
// the application router beneath it, and URL builds links that carry it,
// so templates and redirects never hard-code the prefix.
//
// Rules (Clean)
// -------------
// 1. Empty, "/", or all-slash input means "no prefix" and yields "".
// 2. Otherwise the result has exactly one leading slash and no trailing
//    slash, with duplicate separators collapsed.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package routing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Clean normalises a base path per the rules above.
func Clean(base string) string {
	parts := strings.FieldsFunc(base, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "/")
}

// Mount attaches h to r under base.  An empty base mounts at the root.
func Mount(r chi.Router, base string, h http.Handler) {
	base = Clean(base)
	if base == "" {
		r.Mount("/", h)
		return
	}
	r.Mount(base, h)
}

// URL joins base and path, guaranteeing exactly one leading slash and no
// duplicate separators.  A query string in path is preserved.
func URL(base, path string) string {
	query := ""
	if i := strings.IndexByte(path, '?'); i != -1 {
		path, query = path[:i], path[i:]
	}
	base = Clean(base)
	path = strings.Trim(path, "/")

	switch {
	case base == "" && path == "":
		return "/" + query
	case path == "":
		return base + "/" + query
	default:
		return base + "/" + path + query
	}
}
