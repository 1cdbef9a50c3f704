// internal/visit/store_test.go
//
// Unit-tests for Store and StatsService using sqlmock.
//
// Run: go test ./internal/visit -v

package visit

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/visitlog/internal/ua"
)

var visitCols = []string{
	"id", "ip_address", "user_agent", "referer", "url", "country", "city",
	"device_type", "browser", "platform", "session_id", "created_at", "updated_at",
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := NewStore(sqlx.NewDb(db, "mysql"))
	s.now = func() time.Time { return fixedNow.Add(400 * time.Millisecond) }
	return s, mock
}

func TestStore_Create(t *testing.T) {
	s, mock := newMockStore(t)

	v := &Visit{
		IPAddress:  "203.0.113.5",
		UserAgent:  sp("Mozilla/5.0"),
		URL:        sp("https://example.com/"),
		DeviceType: ua.DeviceDesktop,
		SessionID:  sp("abc"),
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO visits (ip_address, user_agent, referer, url,`)).
		WithArgs("203.0.113.5", "Mozilla/5.0", nil, "https://example.com/", nil, nil,
			"desktop", nil, nil, "abc", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := s.Create(context.Background(), v)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 42 || v.ID != 42 {
		t.Fatalf("id = %d / %d, want 42", id, v.ID)
	}
	if !v.CreatedAt.Equal(fixedNow) || !v.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("timestamps not truncated to the second: %v", v.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_CreateRequiresIP(t *testing.T) {
	s, _ := newMockStore(t)
	if _, err := s.Create(context.Background(), &Visit{}); err == nil {
		t.Fatal("expected error for missing ip")
	}
}

func TestStore_Get(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM visits WHERE id = ? LIMIT 1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(visitCols).AddRow(
			7, "198.51.100.1", "UA", nil, "https://example.com/a", "Spain", "Madrid",
			"mobile", "Safari 17.4", "iOS 17.4", "s-1", fixedNow, fixedNow,
		))

	v, err := s.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.ID != 7 || v.IPAddress != "198.51.100.1" || v.DeviceType != ua.DeviceMobile {
		t.Fatalf("unexpected row: %+v", v)
	}
	if v.Referer != nil {
		t.Fatalf("referer should be nil, got %q", *v.Referer)
	}
	if v.Country == nil || *v.Country != "Spain" {
		t.Fatalf("country = %v", v.Country)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM visits WHERE id = ?`)).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(visitCols))

	if _, err := s.Get(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_Session(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE session_id = ?`) + `\s+` + regexp.QuoteMeta(`ORDER BY created_at ASC, id ASC`)).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(visitCols).
			AddRow(1, "198.51.100.1", nil, nil, "/", nil, nil, "desktop", nil, nil, "s-1", fixedNow, fixedNow).
			AddRow(2, "198.51.100.1", nil, nil, "/b", nil, nil, "desktop", nil, nil, "s-1", fixedNow.Add(5*time.Second), fixedNow))

	rows, err := s.Session(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != 1 || rows[1].ID != 2 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_ListFilters(t *testing.T) {
	s, mock := newMockStore(t)

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	q := ListQuery{
		Search:     "50%_off",
		DeviceType: ua.DeviceMobile,
		From:       &from,
		Sort:       "id",
		Page:       2,
		PerPage:    10,
	}

	like := `%50\%\_off%`
	likeArgs := make([]any, 0, 12)
	for range searchable {
		likeArgs = append(likeArgs, like)
	}
	countArgs := append(append([]any{}, likeArgs...), "mobile", from)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits WHERE (ip_address LIKE ? OR`)).
		WithArgs(toDriver(countArgs)...).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	selArgs := append(append([]any{}, countArgs...), 10, 10)
	mock.ExpectQuery(regexp.QuoteMeta(`AND device_type = ? AND created_at >= ? ORDER BY id ASC LIMIT ? OFFSET ?`)).
		WithArgs(toDriver(selArgs)...).
		WillReturnRows(sqlmock.NewRows(visitCols).
			AddRow(11, "198.51.100.1", nil, nil, nil, nil, nil, "mobile", nil, nil, nil, fixedNow, fixedNow))

	page, err := s.List(context.Background(), q)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 15 || page.LastPage != 2 || page.Page != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_ListDefaults(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)).
		WithArgs(MaxPerPage, 0).
		WillReturnRows(sqlmock.NewRows(visitCols))

	page, err := s.List(context.Background(), ListQuery{Sort: "bogus", PerPage: 1000})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.PerPage != MaxPerPage {
		t.Fatalf("per_page = %d", page.PerPage)
	}
	if page.LastPage != 1 || page.Items == nil {
		t.Fatalf("empty page should have last_page 1 and a non-nil slice: %+v", page)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE visits`)).
		WithArgs("198.51.100.9", nil, nil, "https://example.com/x", "France", nil,
			"tablet", nil, nil, nil, fixedNow, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM visits WHERE id = ?`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), 5, Patch{
		IPAddress:  "198.51.100.9",
		URL:        sp("https://example.com/x"),
		Country:    sp("France"),
		DeviceType: ua.DeviceTablet,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Delete(context.Background(), 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_DeleteMany(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM visits WHERE id IN (?, ?, ?)`)).
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.DeleteMany(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted = %d, want 2", n)
	}
	if n, err := s.DeleteMany(context.Background(), nil); err != nil || n != 0 {
		t.Fatalf("empty DeleteMany = %d, %v", n, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_TopURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT   url, COUNT(*) AS count`)).
		WillReturnRows(sqlmock.NewRows([]string{"url", "count"}).AddRow("https://example.com/pricing", 12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT   url, COUNT(*) AS count`)).
		WillReturnRows(sqlmock.NewRows([]string{"url", "count"}))

	top, err := s.TopURL(context.Background())
	if err != nil || top == nil || top.Count != 12 {
		t.Fatalf("TopURL = %+v, %v", top, err)
	}
	top, err = s.TopURL(context.Background())
	if err != nil || top != nil {
		t.Fatalf("empty TopURL = %+v, %v", top, err)
	}
}

func TestStatsService_Window(t *testing.T) {
	s, mock := newMockStore(t)
	svc := NewStatsService(s)
	svc.now = func() time.Time { return fixedNow }
	since := fixedNow.AddDate(0, 0, -7)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits WHERE created_at >= ?`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT ip_address) FROM visits WHERE created_at >= ?`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY country`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"country", "count"}).
			AddRow("Spain", 6).
			AddRow("Mexico", 3))

	st, err := svc.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalVisits != 10 || st.UniqueVisitors != 4 || st.PeriodDays != 7 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(st.VisitsByCountry) != 2 || st.VisitsByCountry[0].Country != "Spain" {
		t.Fatalf("unexpected countries: %+v", st.VisitsByCountry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStatsService_DefaultDays(t *testing.T) {
	s, mock := newMockStore(t)
	svc := NewStatsService(s)
	svc.now = func() time.Time { return fixedNow }
	since := fixedNow.AddDate(0, 0, -DefaultStatsDays)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM visits WHERE created_at >= ?`)).
		WithArgs(since).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`COUNT(DISTINCT ip_address)`)).
		WithArgs(since).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY country`)).
		WithArgs(since).WillReturnRows(sqlmock.NewRows([]string{"country", "count"}))

	st, err := svc.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.PeriodDays != DefaultStatsDays || st.VisitsByCountry == nil {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

// toDriver widens ints so sqlmock compares them as int64.
func toDriver(in []any) []driver.Value {
	out := make([]driver.Value, len(in))
	for i, v := range in {
		if n, ok := v.(int); ok {
			out[i] = int64(n)
			continue
		}
		out[i] = v
	}
	return out
}
