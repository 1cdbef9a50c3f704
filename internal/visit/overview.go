// internal/visit/overview.go
//
// Values behind the admin overview tiles.  Each tile is computed on its own
// so one failing query only blanks one tile.

package visit

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// OverviewReader is the subset of *Store the overview tiles need.
type OverviewReader interface {
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	UniqueIPs(ctx context.Context) (int64, error)
	DistinctCountries(ctx context.Context) (int64, error)
	TopURL(ctx context.Context) (*URLCount, error)
}

// NoTopPage is shown when no visit carries a url.
const NoTopPage = "N/A"

// Overview computes the dashboard figures.  Times are evaluated in loc so
// "today" follows the operator's calendar day.
type Overview struct {
	store OverviewReader
	loc   *time.Location
	now   func() time.Time
}

// NewOverview wires an Overview.  A nil loc means UTC.
func NewOverview(store OverviewReader, loc *time.Location) *Overview {
	if loc == nil {
		loc = time.UTC
	}
	return &Overview{store: store, loc: loc, now: time.Now}
}

// StartOfDay returns local midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (o *Overview) Total(ctx context.Context) (string, error) {
	return count(o.store.Count(ctx))
}

// Today counts visits since local midnight.
func (o *Overview) Today(ctx context.Context) (string, error) {
	return count(o.store.CountSince(ctx, StartOfDay(o.now(), o.loc).UTC()))
}

// LastWeek counts visits in the trailing seven days.
func (o *Overview) LastWeek(ctx context.Context) (string, error) {
	return count(o.store.CountSince(ctx, Since(o.now().UTC(), 7)))
}

func (o *Overview) UniqueIPs(ctx context.Context) (string, error) {
	return count(o.store.UniqueIPs(ctx))
}

func (o *Overview) Countries(ctx context.Context) (string, error) {
	return count(o.store.DistinctCountries(ctx))
}

// TopPage renders the most visited url as "<path> (<count>)", or NoTopPage.
func (o *Overview) TopPage(ctx context.Context) (string, error) {
	top, err := o.store.TopURL(ctx)
	if err != nil {
		return "", err
	}
	return TopPageLabel(top), nil
}

// TopPageLabel formats a URLCount for display.
func TopPageLabel(top *URLCount) string {
	if top == nil {
		return NoTopPage
	}
	url := top.URL
	return fmt.Sprintf("%s (%d)", PagePath(&url), top.Count)
}

func count(n int64, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}
