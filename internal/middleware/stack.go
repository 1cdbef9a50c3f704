// internal/middleware/stack.go
//
// Ordered root middleware for cmd/web.
//
// Order matters: Observe wraps Recoverer so a panicking handler still
// produces an access-log line and a 500 in the request metrics.

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Stack returns the root chain, outermost first.  ForceHTTPS is appended
// when forceHTTPS is set.
func Stack(forceHTTPS bool) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		chimw.RequestID,
		Observe,
		chimw.Recoverer,
		Security,
	}
	if forceHTTPS {
		chain = append(chain, ForceHTTPS)
	}
	return chain
}
