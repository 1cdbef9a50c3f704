// internal/geo/geo.go
//
// IP geolocation behind a small interface.
//
/*
Context
--------
Ingestion asks one question per visit: which country and city does this
address belong to?  The answer is best-effort.  A Locator performs the raw
lookup and may fail in any way it likes; the Resolver wraps it and turns
every failure into an empty Location so callers never branch on errors.

Workflow
--------
  1. `Open(path)` opens a GeoLite2-City database with geoip2-golang.  When
     no path is configured, main wires `Nop` instead.
  2. `NewResolver(loc, timeout)` bounds every lookup with a deadline and
     skips loopback, private, link-local, and unspecified addresses.
  3. `Resolver.Resolve` returns a Location, possibly empty.  Outcomes are
     counted in `visitlog_geo_lookups_total{result}`.

Notes
-----
  • The MaxMind reader is safe for concurrent reads, which is all we do.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package geo

import (
	"context"
	"errors"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// ErrNoData is returned by a Locator when the address has no record.
var ErrNoData = errors.New("geo: no data for address")

// Location holds IP-based geolocation hints.  Every field may be empty.
type Location struct {
	Country    string  `json:"country,omitempty"`
	CountryISO string  `json:"country_iso,omitempty"`
	City       string  `json:"city,omitempty"`
	Region     string  `json:"region,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	TimeZone   string  `json:"time_zone,omitempty"`
}

// Empty reports whether the lookup produced neither country nor city.
func (l Location) Empty() bool { return l.Country == "" && l.City == "" }

// Locator performs a raw, fallible lookup.
type Locator interface {
	Lookup(ctx context.Context, ip net.IP) (Location, error)
}

//
// MaxMind implementation
//

// MaxMind reads a local GeoLite2-City (or GeoIP2-City) database.
type MaxMind struct {
	reader *geoip2.Reader
	lang   string
}

// Open opens the database at path.  The caller must Close it on shutdown.
func Open(path string) (*MaxMind, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &MaxMind{reader: r, lang: "en"}, nil
}

// Lookup resolves ip against the City database.  Addresses missing from the
// database return ErrNoData.
func (m *MaxMind) Lookup(_ context.Context, ip net.IP) (Location, error) {
	rec, err := m.reader.City(ip)
	if err != nil {
		return Location{}, err
	}

	loc := Location{
		Country:    rec.Country.Names[m.lang],
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names[m.lang],
		PostalCode: rec.Postal.Code,
		Latitude:   rec.Location.Latitude,
		Longitude:  rec.Location.Longitude,
		TimeZone:   rec.Location.TimeZone,
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].Names[m.lang]
	}
	if loc.Empty() {
		return Location{}, ErrNoData
	}
	return loc, nil
}

// Close releases the memory-mapped database.
func (m *MaxMind) Close() error { return m.reader.Close() }

//
// Nop implementation
//

// Nop never knows anything.  Used when no database is configured.
type Nop struct{}

func (Nop) Lookup(context.Context, net.IP) (Location, error) { return Location{}, ErrNoData }
