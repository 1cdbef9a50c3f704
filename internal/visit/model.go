// internal/visit/model.go
//
// `visits` table row model.
//
// Context
// -------
// The `Visit` struct mirrors one row in the **visits** table.  One row is
// written per ingestion call; admins may later edit or delete it.  Nothing
// derived from visits is stored: stats, overview widgets, and journeys are
// computed on read.
//
// Schema reference
//
//	CREATE TABLE visits (
//	    id          BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    ip_address  VARCHAR(45)  NOT NULL,
//	    user_agent  VARCHAR(255) NULL,
//	    referer     VARCHAR(255) NULL,
//	    url         VARCHAR(500) NULL,
//	    country     VARCHAR(255) NULL,
//	    city        VARCHAR(255) NULL,
//	    device_type VARCHAR(16)  NOT NULL DEFAULT 'unknown',
//	    browser     VARCHAR(255) NULL,
//	    platform    VARCHAR(255) NULL,
//	    session_id  VARCHAR(255) NULL,
//	    created_at  TIMESTAMP    NULL,
//	    updated_at  TIMESTAMP    NULL,
//	    INDEX visits_ip_address_index (ip_address),
//	    INDEX visits_session_id_index (session_id),
//	    INDEX visits_ip_address_created_at_index (ip_address, created_at)
//	);
//
// Notes
// -----
// • Nullable text columns are `*string`; callers must nil-check before use.
//   JSON encodes them as null, matching what was stored.
// • The DSN must carry `parseTime=true` so TIMESTAMP scans into time.Time.
package visit

import (
	"errors"
	"time"

	"github.com/yanizio/visitlog/internal/ua"
)

var (
	// ErrNotFound is returned when no row matches the requested id.
	ErrNotFound = errors.New("visit not found")

	// ErrNoSession is returned when a journey is requested for a visit that
	// carries no session id.  It is distinct from a session with no rows.
	ErrNoSession = errors.New("visit has no session")
)

// Visit mirrors one row in the `visits` table.
type Visit struct {
	ID         int64         `db:"id"          json:"id"`
	IPAddress  string        `db:"ip_address"  json:"ip_address"`
	UserAgent  *string       `db:"user_agent"  json:"user_agent"`
	Referer    *string       `db:"referer"     json:"referer"`
	URL        *string       `db:"url"         json:"url"`
	Country    *string       `db:"country"     json:"country"`
	City       *string       `db:"city"        json:"city"`
	DeviceType ua.DeviceType `db:"device_type" json:"device_type"`
	Browser    *string       `db:"browser"     json:"browser"`
	Platform   *string       `db:"platform"    json:"platform"`
	SessionID  *string       `db:"session_id"  json:"session_id"`
	CreatedAt  time.Time     `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"  json:"updated_at"`
}

// HasSession reports whether the visit belongs to a session.
func (v *Visit) HasSession() bool { return v.SessionID != nil && *v.SessionID != "" }

// CountryCount is one row of the per-country aggregate.
type CountryCount struct {
	Country string `db:"country" json:"country"`
	Count   int64  `db:"count"   json:"count"`
}

// URLCount is one row of the most-viewed-page aggregate.
type URLCount struct {
	URL   string `db:"url"   json:"url"`
	Count int64  `db:"count" json:"count"`
}

// columns is the canonical SELECT list; keep it in sync with Visit.
const columns = `id, ip_address, user_agent, referer, url, country, city,
               device_type, browser, platform, session_id, created_at, updated_at`

// strPtr returns nil for the empty string so optional columns store NULL.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
