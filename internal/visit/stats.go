// internal/visit/stats.go
//
// Windowed aggregate stats for `GET /v1/visits/stats`.
//
// Notes
// -----
//   - Identical concurrent requests share one set of queries.  The shared
//     work runs detached from any single caller's cancellation and bounded
//     by StatsTimeout; each caller still returns as soon as its own context
//     ends.

package visit

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStatsDays is the window used when the caller does not pass one.
const DefaultStatsDays = 30

// StatsTimeout bounds one shared round of stats queries.
const StatsTimeout = 30 * time.Second

// Stats is the JSON body of the stats endpoint.
type Stats struct {
	TotalVisits     int64          `json:"total_visits"`
	UniqueVisitors  int64          `json:"unique_visitors"`
	VisitsByCountry []CountryCount `json:"visits_by_country"`
	PeriodDays      int            `json:"period_days"`
}

// StatsReader is the subset of *Store the stats service needs.
type StatsReader interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
	UniqueIPsSince(ctx context.Context, since time.Time) (int64, error)
	CountriesSince(ctx context.Context, since time.Time) ([]CountryCount, error)
}

// StatsService computes Stats.  Concurrent calls for the same window share
// one set of queries.
type StatsService struct {
	store StatsReader
	now   func() time.Time
	group singleflight.Group
}

// NewStatsService wires a StatsService over store.
func NewStatsService(store StatsReader) *StatsService {
	return &StatsService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Since returns the inclusive lower bound of a days-long window ending now.
func Since(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// Stats aggregates visits whose created_at falls within the last days days.
func (s *StatsService) Stats(ctx context.Context, days int) (Stats, error) {
	if days < 1 {
		days = DefaultStatsDays
	}

	ch := s.group.DoChan(strconv.Itoa(days), func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), StatsTimeout)
		defer cancel()
		return s.compute(shared, days)
	})

	select {
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Stats{}, res.Err
		}
		return res.Val.(Stats), nil
	}
}

func (s *StatsService) compute(ctx context.Context, days int) (Stats, error) {
	since := Since(s.now(), days)

	total, err := s.store.CountSince(ctx, since)
	if err != nil {
		return Stats{}, err
	}
	unique, err := s.store.UniqueIPsSince(ctx, since)
	if err != nil {
		return Stats{}, err
	}
	countries, err := s.store.CountriesSince(ctx, since)
	if err != nil {
		return Stats{}, err
	}
	if countries == nil {
		countries = []CountryCount{}
	}
	return Stats{
		TotalVisits:     total,
		UniqueVisitors:  unique,
		VisitsByCountry: countries,
		PeriodDays:      days,
	}, nil
}
