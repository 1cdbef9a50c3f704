// components/visits/visits.go
//
// Public visit API: ingestion and windowed stats.
//
// Routes (mounted at /v1/visits)
// ------------------------------
//
//	POST /        – record one visit, 201 {success, message, visit_id}
//	GET  /stats   – aggregate counts, 200 {total_visits, unique_visitors,
//	                visits_by_country, period_days}
//
// Notes
// -----
//   - The client address comes from requestinfo (the TCP peer, or a hop
//     vouched for by a trusted proxy).  Nothing in the body can set it.
//   - Validation failures answer 422 before anything touches the database.
//   - Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package visits

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/visitlog/internal/component"
	"github.com/yanizio/visitlog/internal/form"
	"github.com/yanizio/visitlog/internal/requestinfo"
	"github.com/yanizio/visitlog/internal/visit"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// RecordedMessage is the success message of the ingestion endpoint.
const RecordedMessage = "Visit recorded successfully."

// Recorder persists one visit.  *visit.Recorder satisfies it.
type Recorder interface {
	Record(ctx context.Context, src visit.Source, in visit.Input) (*visit.Visit, error)
}

// StatsProvider computes windowed stats.  *visit.StatsService satisfies it.
type StatsProvider interface {
	Stats(ctx context.Context, days int) (visit.Stats, error)
}

// Options bounds the stats window.
type Options struct {
	DefaultDays int
	MaxDays     int
}

// Component serves the public visit API.
type Component struct {
	rec   Recorder
	stats StatsProvider
	opts  Options
}

// New wires the component.  Zero Options fall back to 30 and 365 days.
func New(rec Recorder, stats StatsProvider, opts Options) *Component {
	if opts.DefaultDays < 1 {
		opts.DefaultDays = visit.DefaultStatsDays
	}
	if opts.MaxDays < opts.DefaultDays {
		opts.MaxDays = max(365, opts.DefaultDays)
	}
	return &Component{rec: rec, stats: stats, opts: opts}
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "visits" }

// Prefix is where Routes is mounted.
func (c *Component) Prefix() string { return "/v1/visits" }

// Routes builds the router mounted at Prefix.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", c.handleStore)
	r.Get("/stats", c.handleStats)
	return r
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

// storeRequest is the accepted body.  Unknown keys, ip_address included,
// are ignored.
type storeRequest struct {
	URL       *string `json:"url"        validate:"omitempty,max=500"`
	SessionID *string `json:"session_id" validate:"omitempty,max=255"`
}

type storeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	VisitID int64  `json:"visit_id"`
}

func (c *Component) handleStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := form.Bind(r, &req); err != nil {
		form.Fail(w, r, err)
		return
	}

	ri := requestinfo.FromContext(r.Context())
	if ri == nil {
		form.Fail(w, r, errors.New("request info missing from context"))
		return
	}

	v, err := c.rec.Record(r.Context(),
		visit.Source{IP: ri.IP, UA: ri.UA, Referer: ri.Referer},
		visit.Input{URL: req.URL, SessionID: req.SessionID},
	)
	if err != nil {
		form.Fail(w, r, err)
		return
	}

	form.JSON(w, http.StatusCreated, storeResponse{
		Success: true,
		Message: RecordedMessage,
		VisitID: v.ID,
	})
}

func (c *Component) handleStats(w http.ResponseWriter, r *http.Request) {
	days, err := c.parseDays(r.URL.Query().Get("days"))
	if err != nil {
		form.Fail(w, r, err)
		return
	}

	st, err := c.stats.Stats(r.Context(), days)
	if err != nil {
		form.Fail(w, r, err)
		return
	}
	form.JSON(w, http.StatusOK, st)
}

// parseDays applies the default and the 1..MaxDays bound.
func (c *Component) parseDays(raw string) (int, error) {
	if raw == "" {
		return c.opts.DefaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, form.Invalid("days", "The days field must be an integer.")
	}
	if days < 1 || days > c.opts.MaxDays {
		return 0, form.Invalid("days",
			fmt.Sprintf("The days field must be between 1 and %d.", c.opts.MaxDays))
	}
	return days, nil
}
