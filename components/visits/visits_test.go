// components/visits/visits_test.go
//
// Handler tests for the public visit API.
//
// Context
// -------
// The full request path runs for real: requestinfo.Enrich, the component
// router, visit.Recorder, geo.Resolver, and visit.Store over sqlmock.  Only
// the database and the geolocation source are faked, so the assertions
// cover what actually reaches the INSERT.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package visits

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/visitlog/internal/form"
	"github.com/yanizio/visitlog/internal/geo"
	"github.com/yanizio/visitlog/internal/requestinfo"
	"github.com/yanizio/visitlog/internal/visit"
)

const (
	chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	insertSQL = `INSERT INTO visits (ip_address, user_agent, referer, url,`
)

type stubLocator struct {
	loc geo.Location
	err error
}

func (s stubLocator) Lookup(context.Context, net.IP) (geo.Location, error) { return s.loc, s.err }

type stubStats struct {
	days int
	out  visit.Stats
	err  error
}

func (s *stubStats) Stats(_ context.Context, days int) (visit.Stats, error) {
	s.days = days
	s.out.PeriodDays = days
	return s.out, s.err
}

var madrid = stubLocator{loc: geo.Location{Country: "Spain", City: "Madrid"}}

func newServer(t *testing.T, loc geo.Locator) (http.Handler, sqlmock.Sqlmock, *stubStats) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := visit.NewStore(sqlx.NewDb(db, "sqlmock"))
	rec := visit.NewRecorder(store, geo.NewResolver(loc, time.Second))
	stats := &stubStats{}
	c := New(rec, stats, Options{DefaultDays: 30, MaxDays: 365})

	r := chi.NewRouter()
	r.Use(requestinfo.Enrich(nil))
	r.Mount(c.Prefix(), c.Routes())
	return r, mock, stats
}

func postVisit(h http.Handler, remote, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/visits", strings.NewReader(body))
	req.RemoteAddr = remote
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStore_UsesPeerAddressNotBody(t *testing.T) {
	h, mock, _ := newServer(t, madrid)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("203.0.113.9", chromeMac, "https://example.com/from", "https://example.com/a",
			"Spain", "Madrid", "desktop", sqlmock.AnyArg(), sqlmock.AnyArg(), "sess-1",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	rr := postVisit(h, "203.0.113.9:51000",
		`{"url":"https://example.com/a","session_id":"sess-1","ip_address":"9.9.9.9"}`,
		map[string]string{
			"User-Agent":      chromeMac,
			"Referer":         "https://example.com/from",
			"X-Forwarded-For": "1.2.3.4",
		})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	var resp storeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.VisitID != 42 || resp.Message != RecordedMessage {
		t.Fatalf("response = %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_URLFallsBackToReferer(t *testing.T) {
	h, mock, _ := newServer(t, madrid)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("198.51.100.7", nil, "https://example.com/blog", "https://example.com/blog",
			"Spain", "Madrid", "unknown", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rr := postVisit(h, "198.51.100.7:1", `{}`, map[string]string{"Referer": "https://example.com/blog"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_NoURLNoRefererStoresNull(t *testing.T) {
	h, mock, _ := newServer(t, madrid)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("198.51.100.7", nil, nil, nil,
			"Spain", "Madrid", "unknown", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	rr := postVisit(h, "198.51.100.7:1", ``, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_GeoFailureStillCreated(t *testing.T) {
	cases := []struct {
		name   string
		loc    geo.Locator
		remote string
	}{
		{"loopback is skipped", madrid, "127.0.0.1:9000"},
		{"lookup error is absorbed", stubLocator{err: errors.New("reader closed")}, "203.0.113.20:9000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock, _ := newServer(t, tc.loc)
			ip, _, _ := net.SplitHostPort(tc.remote)

			mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
				WithArgs(ip, nil, nil, "https://example.com/", nil, nil,
					"unknown", nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(3, 1))

			rr := postVisit(h, tc.remote, `{"url":"https://example.com/"}`, nil)
			if rr.Code != http.StatusCreated {
				t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet SQL expectations: %v", err)
			}
		})
	}
}

func TestStore_ValidationRejectsBeforePersistence(t *testing.T) {
	cases := []struct {
		name, body, field string
	}{
		{"url too long", `{"url":"` + strings.Repeat("a", 501) + `"}`, "url"},
		{"session too long", `{"session_id":"` + strings.Repeat("s", 256) + `"}`, "session_id"},
		{"url wrong type", `{"url": 12}`, "url"},
		{"session wrong type", `{"session_id": {"a": 1}}`, "session_id"},
		{"malformed json", `{"url":`, form.BodyField},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock, _ := newServer(t, madrid)

			rr := postVisit(h, "203.0.113.9:1", tc.body, nil)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rr.Code)
			}
			var body form.ErrorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if len(body.Errors[tc.field]) == 0 {
				t.Fatalf("missing error for %s: %+v", tc.field, body)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("database touched: %v", err)
			}
		})
	}
}

func TestStore_BoundaryLengthsAccepted(t *testing.T) {
	h, mock, _ := newServer(t, madrid)
	url := "https://example.com/" + strings.Repeat("p", 480)
	sid := strings.Repeat("s", 255)

	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).
		WithArgs("203.0.113.9", nil, nil, url, "Spain", "Madrid", "unknown", nil, nil, sid,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(4, 1))

	rr := postVisit(h, "203.0.113.9:1", `{"url":"`+url+`","session_id":"`+sid+`"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
}

func TestStore_DatabaseFailureIs500(t *testing.T) {
	h, mock, _ := newServer(t, madrid)
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WillReturnError(errors.New("connection reset"))

	rr := postVisit(h, "203.0.113.9:1", `{}`, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection reset") {
		t.Fatal("database error leaked")
	}
}

func TestStats(t *testing.T) {
	cases := []struct {
		query    string
		wantCode int
		wantDays int
	}{
		{"", http.StatusOK, 30},
		{"?days=7", http.StatusOK, 7},
		{"?days=365", http.StatusOK, 365},
		{"?days=0", http.StatusUnprocessableEntity, 0},
		{"?days=-3", http.StatusUnprocessableEntity, 0},
		{"?days=366", http.StatusUnprocessableEntity, 0},
		{"?days=week", http.StatusUnprocessableEntity, 0},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			h, _, stats := newServer(t, madrid)
			stats.out = visit.Stats{
				TotalVisits:     12,
				UniqueVisitors:  5,
				VisitsByCountry: []visit.CountryCount{{Country: "Spain", Count: 8}, {Country: "France", Count: 4}},
			}

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/visits/stats"+tc.query, nil))
			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.wantCode, rr.Body)
			}
			if tc.wantCode != http.StatusOK {
				if stats.days != 0 {
					t.Fatal("stats must not run for an invalid window")
				}
				return
			}
			if stats.days != tc.wantDays {
				t.Fatalf("days = %d, want %d", stats.days, tc.wantDays)
			}

			var got map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			for _, k := range []string{"total_visits", "unique_visitors", "visits_by_country", "period_days"} {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q in %s", k, rr.Body)
				}
			}
			if got["period_days"].(float64) != float64(tc.wantDays) {
				t.Errorf("period_days = %v", got["period_days"])
			}
		})
	}
}

func TestStats_Failure(t *testing.T) {
	h, _, stats := newServer(t, madrid)
	stats.err = errors.New("timeout")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/visits/stats", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestNew_OptionDefaults(t *testing.T) {
	c := New(nil, nil, Options{})
	if c.opts.DefaultDays != 30 || c.opts.MaxDays != 365 {
		t.Fatalf("opts = %+v", c.opts)
	}
}
