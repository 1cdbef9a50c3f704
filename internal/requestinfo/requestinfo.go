//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (client IP, user-agent fingerprint, referer, URL, and timestamp).
//  These structs are inert.  They contain no pointers to database
//  handles or large buffers, so they are safe to log or JSON-encode.
//
//  Geolocation is deliberately absent here.  Only the ingestion endpoint
//  needs it, so the visit recorder resolves it on demand instead of paying
//  for a lookup on every admin and stats request.
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/yanizio/visitlog/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// RequestInfo is attached to the request context by Enrich.
type RequestInfo struct {
	IP        net.IP    // Observed client address, see clientIP
	UserAgent string    // Raw User-Agent header
	UA        ua.Info   // Parsed user-agent properties
	Referer   string    // Raw Referer header, may be empty
	URL       *url.URL  // Pointer copy, safe to dereference read-only
	Timestamp time.Time // UTC arrival time
}

//
//  -----------------------------
//  Trusted proxies
//  -----------------------------
//

// TrustedProxies is the set of peer networks whose forwarding headers we
// believe.  The zero value trusts nobody, so the TCP peer is always used.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies converts CIDR strings ("10.0.0.0/8") or bare
// addresses ("127.0.0.1") into a TrustedProxies set.
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	out := make(TrustedProxies, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: not an IP or CIDR", raw)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			raw = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Contains reports whether ip falls inside any trusted network.
func (t TrustedProxies) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range t {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo stores info in ctx.  Exposed for handlers under test.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}
