// internal/visit/recorder.go
//
// Ingestion: turn one request into one persisted visit.
//
/*
Context
--------
`Recorder.Record` is the write path behind `POST /v1/visits`.  The handler
validates the body and hands over what it observed about the request; the
recorder does the rest:

  1. url falls back to the Referer header; both missing stores NULL.
  2. Device type, browser, and platform come from one UA parse.
  3. Country and city come from the geo resolver.  Resolver failures are
     already absorbed, so geolocation can never fail ingestion.
  4. The row is inserted and its id returned.

Notes
-----
  • The address comes from Source.IP only.  Request bodies never reach it.
  • Header values longer than their column are truncated on rune
    boundaries instead of failing the insert.
*/
package visit

import (
	"context"
	"errors"
	"net"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yanizio/visitlog/internal/geo"
	"github.com/yanizio/visitlog/internal/metrics"
	"github.com/yanizio/visitlog/internal/ua"
)

// ErrNoClientIP is returned when the request carried no usable address.
var ErrNoClientIP = errors.New("visit: client ip unavailable")

// Column widths enforced before insert.
const (
	maxHeaderLen  = 255
	MaxURLLen     = 500
	MaxSessionLen = 255
)

// Input is the validated client-supplied part of an ingestion call.
type Input struct {
	URL       *string
	SessionID *string
}

// Source is what the server observed about the request.
type Source struct {
	IP      net.IP
	UA      ua.Info // UA.Raw is the verbatim header
	Referer string
}

// Creator persists a visit.  *Store satisfies it.
type Creator interface {
	Create(ctx context.Context, v *Visit) (int64, error)
}

// Locator resolves best-effort location data.  *geo.Resolver satisfies it.
type Locator interface {
	Resolve(ctx context.Context, ip net.IP) geo.Location
}

// Recorder implements the ingestion steps.
type Recorder struct {
	store Creator
	geo   Locator
}

// NewRecorder wires a Recorder.  A nil locator disables geolocation.
func NewRecorder(store Creator, loc Locator) *Recorder {
	if loc == nil {
		loc = geo.NewResolver(geo.Nop{}, 0)
	}
	return &Recorder{store: store, geo: loc}
}

// Record builds and persists one visit.
func (r *Recorder) Record(ctx context.Context, src Source, in Input) (*Visit, error) {
	if src.IP == nil {
		return nil, ErrNoClientIP
	}

	referer := truncate(src.Referer, maxHeaderLen)

	v := &Visit{
		IPAddress:  src.IP.String(),
		UserAgent:  strPtr(truncate(src.UA.Raw, maxHeaderLen)),
		Referer:    strPtr(referer),
		URL:        nonEmpty(in.URL),
		DeviceType: src.UA.Device,
		Browser:    strPtr(truncate(src.UA.Browser(), maxHeaderLen)),
		Platform:   strPtr(truncate(src.UA.Platform(), maxHeaderLen)),
		SessionID:  nonEmpty(in.SessionID),
	}
	if v.URL == nil {
		v.URL = strPtr(referer)
	}
	if v.DeviceType == "" {
		v.DeviceType = ua.DeviceUnknown
	}

	loc := r.geo.Resolve(ctx, src.IP)
	v.Country = strPtr(truncate(loc.Country, maxHeaderLen))
	v.City = strPtr(truncate(loc.City, maxHeaderLen))

	if _, err := r.store.Create(ctx, v); err != nil {
		return nil, err
	}

	metrics.VisitsRecordedTotal.WithLabelValues(string(v.DeviceType)).Inc()
	zap.L().Debug("visit recorded",
		zap.Int64("id", v.ID),
		zap.String("ip", v.IPAddress),
		zap.String("device", string(v.DeviceType)),
		zap.Bool("geo", v.Country != nil),
	)
	return v, nil
}

// nonEmpty maps nil and "" to nil.
func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
