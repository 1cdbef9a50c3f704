// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the chain, immediately after request ids and
logging but before the component routers.  For every request it:

  1. Resolves the client IP.  Forwarding headers are only honoured when the
     TCP peer is a trusted proxy, so a visitor cannot choose the address
     that ends up in `visits.ip_address`.
  2. Parses the User-Agent header.
  3. Captures the Referer header, URL, and arrival time.
  4. Stores a `*RequestInfo` value in `request.Context`.

Instrumentation
---------------
At debug level each invocation logs client IP, device class, browser, and
request path.

Notes
-----
  • UA parsing is allocation-light and safe under heavy concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/visitlog/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware that attaches *RequestInfo and forwards.
func Enrich(trusted TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &RequestInfo{
				IP:        clientIP(r, trusted),
				UserAgent: r.UserAgent(),
				Referer:   r.Referer(),
				URL:       r.URL,
				Timestamp: time.Now().UTC(),
			}
			info.UA = ua.Parse(info.UserAgent)

			zap.L().Debug("request info",
				zap.Stringer("ip", info.IP),
				zap.String("device", string(info.UA.Device)),
				zap.String("browser", info.UA.Browser()),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP returns the TCP peer unless the peer is a trusted proxy.  In that
// case X-Forwarded-For is walked right to left and the first untrusted hop
// wins; X-Real-Ip is the fallback.
func clientIP(r *http.Request, trusted TrustedProxies) net.IP {
	peer := peerIP(r.RemoteAddr)
	if peer == nil || !trusted.Contains(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		var leftmost net.IP
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				continue
			}
			leftmost = ip
			if !trusted.Contains(ip) {
				return ip
			}
		}
		if leftmost != nil {
			return leftmost
		}
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	return peer
}

// peerIP strips the port from RemoteAddr ("ip:port").  Bare addresses, as
// produced by some test harnesses, are accepted too.
func peerIP(remote string) net.IP {
	if host, _, err := net.SplitHostPort(remote); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(remote)
}
