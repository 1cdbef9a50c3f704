// internal/middleware/logging.go
//
// Access log and request metrics.
//
// Context
// -------
// One structured zap line per request (method, path, route, status, bytes,
// duration, request id) and two Prometheus series keyed by the chi route
// pattern rather than the raw path, so `/admin/api/visits/{id}` stays one
// label value no matter how many ids are requested.
//
// Notes
// -----
// • Must run inside chi's router (after middleware.RequestID) so the route
//   context and request id are available once the handler returns.
// • Unmatched requests are labelled "unmatched".
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/visitlog/internal/metrics"
)

// Observe logs and measures every request passing through next.
func Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)

		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
