// components/admin/query.go
//
// Query-string parsing for the visit list (API and dashboard share it).

package admin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yanizio/visitlog/internal/form"
	"github.com/yanizio/visitlog/internal/ua"
	"github.com/yanizio/visitlog/internal/visit"
)

// DateLayout is the format of the from and to filters.
const DateLayout = "2006-01-02"

// parseListQuery validates the list filters.  Dates are calendar days in
// loc; `to` is inclusive, so it becomes the following midnight.
func parseListQuery(v url.Values, loc *time.Location) (visit.ListQuery, error) {
	errs := form.Errors{}
	q := visit.ListQuery{
		Search:    strings.TrimSpace(v.Get("q")),
		Country:   strings.TrimSpace(v.Get("country")),
		SessionID: strings.TrimSpace(v.Get("session_id")),
		Sort:      v.Get("sort"),
	}

	if d := v.Get("device_type"); d != "" {
		if dt := ua.DeviceType(d); dt.Valid() {
			q.DeviceType = dt
		} else {
			errs.Add("device_type", "The selected device type is invalid.")
		}
	}
	if q.Sort != "" && !visit.SortKeyValid(q.Sort) {
		errs.Add("sort", "The selected sort is invalid.")
	}

	q.From = parseDay(v, "from", loc, 0, errs)
	q.To = parseDay(v, "to", loc, 1, errs)
	if q.From != nil && q.To != nil && !q.From.Before(*q.To) {
		errs.Add("to", "The to field must be a date after or equal to from.")
	}

	q.Page = parsePositive(v, "page", 0, errs)
	q.PerPage = parsePositive(v, "per_page", visit.MaxPerPage, errs)

	if len(errs) > 0 {
		return q, &form.ValidationError{Fields: errs}
	}
	return q, nil
}

// parseDay reads a YYYY-MM-DD value and returns midnight (plus addDays) in
// UTC.
func parseDay(v url.Values, key string, loc *time.Location, addDays int, errs form.Errors) *time.Time {
	raw := v.Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		errs.Add(key, fmt.Sprintf("The %s field must match the format YYYY-MM-DD.", key))
		return nil
	}
	t = t.AddDate(0, 0, addDays).UTC()
	return &t
}

// parsePositive reads an optional integer >= 1, and <= limit when limit > 0.
func parsePositive(v url.Values, key string, limit int, errs form.Errors) int {
	raw := v.Get(key)
	if raw == "" {
		return 0
	}
	label := strings.ReplaceAll(key, "_", " ")
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, fmt.Sprintf("The %s field must be an integer.", label))
		return 0
	}
	if n < 1 {
		errs.Add(key, fmt.Sprintf("The %s field must be at least 1.", label))
		return 0
	}
	if limit > 0 && n > limit {
		errs.Add(key, fmt.Sprintf("The %s field must not be greater than %d.", label, limit))
		return 0
	}
	return n
}

// pageURL rebuilds the current query with a different page number.
func pageURL(base string, v url.Values, page int) string {
	out := url.Values{}
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	out.Set("page", strconv.Itoa(page))
	return base + "?" + out.Encode()
}
