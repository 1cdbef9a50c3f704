// internal/visit/store.go
//
// Row-level access to the `visits` table.
//
// Context
// -------
// `Store` is the only type that issues SQL against `visits`.  It holds an
// explicit *sqlx.DB handle (no package-level state) and a clock so tests can
// pin timestamps.  Aggregate reads live in aggregate.go; this file covers
// create, read, list, update, and delete.
//
// Notes
// -----
//   - Every method takes a context.Context and respects its deadline.
//   - Errors are returned wrapped; sql.ErrNoRows becomes ErrNotFound.
//   - The pool is expected to run with `clientFoundRows=true` (see
//     internal/database) so RowsAffected counts matched rows, which lets
//     Update and Delete report ErrNotFound reliably.
//   - Oxford commas, two spaces after periods.
package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/visitlog/internal/ua"
)

// Store wraps the visits table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Now is the store clock truncated to whole seconds, the TIMESTAMP
// resolution, so a created row reads back unchanged.
func (s *Store) Now() time.Time { return s.now().Truncate(time.Second) }

//
// create / read
//

// Create inserts v, stamps CreatedAt and UpdatedAt, and sets v.ID.
func (s *Store) Create(ctx context.Context, v *Visit) (int64, error) {
	const q = `
	    INSERT INTO visits (ip_address, user_agent, referer, url, country, city,
	                        device_type, browser, platform, session_id,
	                        created_at, updated_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if v.IPAddress == "" {
		return 0, errors.New("visit: ip_address is required")
	}
	if v.DeviceType == "" {
		v.DeviceType = ua.DeviceUnknown
	}
	now := s.Now()
	v.CreatedAt, v.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, q,
		v.IPAddress, v.UserAgent, v.Referer, v.URL, v.Country, v.City,
		string(v.DeviceType), v.Browser, v.Platform, v.SessionID,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert visit id: %w", err)
	}
	v.ID = id
	return id, nil
}

// Get fetches one visit by primary key.
func (s *Store) Get(ctx context.Context, id int64) (*Visit, error) {
	const q = `SELECT ` + columns + ` FROM visits WHERE id = ? LIMIT 1`

	var v Visit
	if err := s.db.GetContext(ctx, &v, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get visit %d: %w", id, err)
	}
	return &v, nil
}

// Session returns every visit sharing sessionID, oldest first.  Ties on
// created_at fall back to insertion order.
func (s *Store) Session(ctx context.Context, sessionID string) ([]Visit, error) {
	const q = `
	    SELECT ` + columns + `
	    FROM   visits
	    WHERE  session_id = ?
	    ORDER  BY created_at ASC, id ASC`

	rows := make([]Visit, 0, 8)
	if err := s.db.SelectContext(ctx, &rows, q, sessionID); err != nil {
		return nil, fmt.Errorf("session visits: %w", err)
	}
	return rows, nil
}

//
// list
//

// searchable lists the text columns matched by ListQuery.Search.
var searchable = []string{
	"ip_address", "user_agent", "referer", "url", "country", "city",
	"device_type", "browser", "platform", "session_id",
}

// sortable maps accepted sort keys to ORDER BY clauses.  A leading "-"
// means descending.
var sortable = map[string]string{
	"id":          "id ASC",
	"-id":         "id DESC",
	"created_at":  "created_at ASC, id ASC",
	"-created_at": "created_at DESC, id DESC",
	"updated_at":  "updated_at ASC, id ASC",
	"-updated_at": "updated_at DESC, id DESC",
}

const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// ListQuery filters and paginates List.  Zero values mean "no filter".
type ListQuery struct {
	Search     string
	DeviceType ua.DeviceType
	Country    string
	SessionID  string
	From       *time.Time // inclusive
	To         *time.Time // exclusive
	Sort       string
	Page       int
	PerPage    int
}

// Page is one slice of a List result.
type Page struct {
	Items    []Visit `json:"data"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PerPage  int     `json:"per_page"`
	LastPage int     `json:"last_page"`
}

// SortKeyValid reports whether key is accepted by List.
func SortKeyValid(key string) bool {
	_, ok := sortable[key]
	return ok
}

// List returns one page of visits matching q.
func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	q.normalise()

	where, args := q.where()

	var total int64
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM visits`+where, args...); err != nil {
		return Page{}, fmt.Errorf("count visits: %w", err)
	}

	page := Page{
		Items:   make([]Visit, 0, q.PerPage),
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
	}
	page.LastPage = int((total + int64(q.PerPage) - 1) / int64(q.PerPage))
	if page.LastPage == 0 {
		page.LastPage = 1
	}

	sel := `SELECT ` + columns + ` FROM visits` + where +
		` ORDER BY ` + sortable[q.Sort] + ` LIMIT ? OFFSET ?`
	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
	if err := s.db.SelectContext(ctx, &page.Items, sel, args...); err != nil {
		return Page{}, fmt.Errorf("list visits: %w", err)
	}
	return page, nil
}

func (q *ListQuery) normalise() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if !SortKeyValid(q.Sort) {
		q.Sort = "-created_at"
	}
}

// where builds the WHERE clause (with leading space) and its arguments.
func (q *ListQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + escapeLike(term) + "%"
		parts := make([]string, len(searchable))
		for i, col := range searchable {
			parts[i] = col + ` LIKE ?`
			args = append(args, like)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	if q.DeviceType != "" {
		conds = append(conds, `device_type = ?`)
		args = append(args, string(q.DeviceType))
	}
	if q.Country != "" {
		conds = append(conds, `country = ?`)
		args = append(args, q.Country)
	}
	if q.SessionID != "" {
		conds = append(conds, `session_id = ?`)
		args = append(args, q.SessionID)
	}
	if q.From != nil {
		conds = append(conds, `created_at >= ?`)
		args = append(args, *q.From)
	}
	if q.To != nil {
		conds = append(conds, `created_at < ?`)
		args = append(args, *q.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

//
// update / delete
//

// Patch carries every admin-editable column.  It replaces the row's values
// wholesale, the way the edit form does.
type Patch struct {
	IPAddress  string        `json:"ip_address"  validate:"required,ip"`
	UserAgent  *string       `json:"user_agent"  validate:"omitempty,max=255"`
	Referer    *string       `json:"referer"     validate:"omitempty,max=255"`
	URL        *string       `json:"url"         validate:"omitempty,url,max=500"`
	Country    *string       `json:"country"     validate:"omitempty,max=255"`
	City       *string       `json:"city"        validate:"omitempty,max=255"`
	DeviceType ua.DeviceType `json:"device_type" validate:"omitempty,oneof=mobile desktop tablet bot unknown"`
	Browser    *string       `json:"browser"     validate:"omitempty,max=255"`
	Platform   *string       `json:"platform"    validate:"omitempty,max=255"`
	SessionID  *string       `json:"session_id"  validate:"omitempty,max=255"`
}

// Update overwrites the editable columns of row id and bumps updated_at.
func (s *Store) Update(ctx context.Context, id int64, p Patch) error {
	const q = `
	    UPDATE visits
	    SET    ip_address = ?, user_agent = ?, referer = ?, url = ?,
	           country = ?, city = ?, device_type = ?, browser = ?,
	           platform = ?, session_id = ?, updated_at = ?
	    WHERE  id = ?`

	if p.DeviceType == "" {
		p.DeviceType = ua.DeviceUnknown
	}
	res, err := s.db.ExecContext(ctx, q,
		p.IPAddress, p.UserAgent, p.Referer, p.URL,
		p.Country, p.City, string(p.DeviceType), p.Browser,
		p.Platform, p.SessionID, s.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update visit %d: %w", id, err)
	}
	return mustAffect(res, id)
}

// Delete removes one row.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete visit %d: %w", id, err)
	}
	return mustAffect(res, id)
}

// DeleteMany removes every listed row and reports how many were deleted.
// Unknown ids are ignored.
func (s *Store) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(`DELETE FROM visits WHERE id IN (?)`, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete: %w", err)
	}
	return res.RowsAffected()
}

func mustAffect(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("visit %d rows affected: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
