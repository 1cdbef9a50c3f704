// internal/visit/aggregate.go
//
// Read-only aggregate queries over `visits`.  These back the public stats
// endpoint and the admin overview widgets.  Each helper runs exactly one
// parameterised SELECT.
//
// Unique visitors are counted as distinct ip_address values.  That is an
// approximation: shared and rotating addresses skew it in both directions,
// and no better identity signal exists in the row.

package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Count returns the all-time number of visits.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.scalar(ctx, "count visits", `SELECT COUNT(*) FROM visits`)
}

// CountSince returns the number of visits with created_at >= since.
func (s *Store) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return s.scalar(ctx, "count visits since",
		`SELECT COUNT(*) FROM visits WHERE created_at >= ?`, since)
}

// UniqueIPs returns the all-time number of distinct client addresses.
func (s *Store) UniqueIPs(ctx context.Context) (int64, error) {
	return s.scalar(ctx, "count unique ips",
		`SELECT COUNT(DISTINCT ip_address) FROM visits`)
}

// UniqueIPsSince returns distinct client addresses with created_at >= since.
func (s *Store) UniqueIPsSince(ctx context.Context, since time.Time) (int64, error) {
	return s.scalar(ctx, "count unique ips since",
		`SELECT COUNT(DISTINCT ip_address) FROM visits WHERE created_at >= ?`, since)
}

// DistinctCountries returns how many different non-NULL countries exist.
func (s *Store) DistinctCountries(ctx context.Context) (int64, error) {
	return s.scalar(ctx, "count countries",
		`SELECT COUNT(DISTINCT country) FROM visits WHERE country IS NOT NULL`)
}

// CountriesSince groups visits with created_at >= since by country, most
// visited first.  NULL countries are excluded; ties sort by name.
func (s *Store) CountriesSince(ctx context.Context, since time.Time) ([]CountryCount, error) {
	const q = `
	    SELECT   country, COUNT(*) AS count
	    FROM     visits
	    WHERE    created_at >= ?
	      AND    country IS NOT NULL
	    GROUP BY country
	    ORDER BY count DESC, country ASC`

	out := make([]CountryCount, 0, 16)
	if err := s.db.SelectContext(ctx, &out, q, since); err != nil {
		return nil, fmt.Errorf("visits by country: %w", err)
	}
	return out, nil
}

// TopURL returns the most visited non-NULL url, or nil when there are no
// visits with a url.
func (s *Store) TopURL(ctx context.Context) (*URLCount, error) {
	const q = `
	    SELECT   url, COUNT(*) AS count
	    FROM     visits
	    WHERE    url IS NOT NULL
	    GROUP BY url
	    ORDER BY count DESC, url ASC
	    LIMIT    1`

	var top URLCount
	if err := s.db.GetContext(ctx, &top, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("top url: %w", err)
	}
	return &top, nil
}

func (s *Store) scalar(ctx context.Context, what, q string, args ...any) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}
