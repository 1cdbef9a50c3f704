// internal/geo/resolver.go
//
// Failure-absorbing wrapper around a Locator, with an optional LRU of
// recent answers.  Only definite answers (hit or miss) are cached; errors
// and timeouts are retried on the next visit.

package geo

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/visitlog/internal/cache"
	"github.com/yanizio/visitlog/internal/metrics"
)

// DefaultTimeout bounds a lookup when the configuration leaves it unset.
const DefaultTimeout = 2 * time.Second

// Lookup outcome labels for visitlog_geo_lookups_total.
const (
	resultHit     = "hit"
	resultCached  = "cached"
	resultMiss    = "miss"
	resultSkipped = "skipped"
	resultError   = "error"
	resultTimeout = "timeout"
)

// Resolver never fails.  A zero Location means "unknown".
type Resolver struct {
	loc     Locator
	timeout time.Duration
	cache   *cache.LRU[string, Location] // nil = no caching
}

// NewResolver wraps loc.  A non-positive timeout selects DefaultTimeout.
func NewResolver(loc Locator, timeout time.Duration) *Resolver {
	if loc == nil {
		loc = Nop{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{loc: loc, timeout: timeout}
}

// WithCache enables an LRU of size entries.  A non-positive size leaves
// caching off.
func (r *Resolver) WithCache(size int) *Resolver {
	if size > 0 {
		r.cache = cache.New[string, Location](size)
	}
	return r
}

// Resolve returns best-effort location data for ip.
func (r *Resolver) Resolve(ctx context.Context, ip net.IP) Location {
	if !Routable(ip) {
		metrics.GeoLookupsTotal.WithLabelValues(resultSkipped).Inc()
		return Location{}
	}
	key := ip.String()
	if r.cache != nil {
		if loc, ok := r.cache.Get(key); ok {
			metrics.GeoLookupsTotal.WithLabelValues(resultCached).Inc()
			return loc
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type outcome struct {
		loc Location
		err error
	}
	done := make(chan outcome, 1) // buffered so a late lookup never blocks
	go func() {
		loc, err := r.loc.Lookup(ctx, ip)
		done <- outcome{loc, err}
	}()

	select {
	case <-ctx.Done():
		metrics.GeoLookupsTotal.WithLabelValues(resultTimeout).Inc()
		zap.L().Debug("geo lookup timed out",
			zap.Stringer("ip", ip), zap.Duration("timeout", r.timeout))
		return Location{}
	case out := <-done:
		switch {
		case errors.Is(out.err, ErrNoData):
			metrics.GeoLookupsTotal.WithLabelValues(resultMiss).Inc()
			r.remember(key, Location{})
			return Location{}
		case out.err != nil:
			metrics.GeoLookupsTotal.WithLabelValues(resultError).Inc()
			zap.L().Debug("geo lookup failed", zap.Stringer("ip", ip), zap.Error(out.err))
			return Location{}
		case out.loc.Empty():
			metrics.GeoLookupsTotal.WithLabelValues(resultMiss).Inc()
			r.remember(key, Location{})
			return Location{}
		}
		metrics.GeoLookupsTotal.WithLabelValues(resultHit).Inc()
		r.remember(key, out.loc)
		return out.loc
	}
}

func (r *Resolver) remember(key string, loc Location) {
	if r.cache != nil {
		r.cache.Add(key, loc)
	}
}

// Routable reports whether ip is worth looking up: not nil, loopback,
// private, link-local, multicast, or unspecified.
func Routable(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified())
}
