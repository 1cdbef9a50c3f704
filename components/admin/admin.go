// components/admin/admin.go
//
// Admin component: JSON API and server-rendered dashboard over `visits`.
//
// Routes (mounted at /admin)
// --------------------------
//
//	GET    /                                  HTML dashboard (widgets + table)
//	GET    /visits/{id}                       HTML detail with journey
//	GET    /api/overview                      widget values
//	GET    /api/visits                        search, filter, sort, paginate
//	POST   /api/visits/bulk-delete            {ids: [...]}
//	GET    /api/visits/{id}                   one visit
//	PATCH  /api/visits/{id}                   edit, bumps updated_at
//	DELETE /api/visits/{id}                   delete
//	GET    /api/visits/{id}/journey           journey JSON or {has_session: false}
//	GET    /api/visits/{id}/journey.mmd       Mermaid flowchart text
//
// Notes
// -----
//   - There is no create route; visits only arrive through /v1/visits.
//   - Access control belongs in front of this service (reverse proxy or
//     network policy); the component itself does not authenticate.
//   - Oxford commas, two spaces after periods.
//
//------------------------------------------------------------------------------

package admin

import (
	"context"
	"embed"
	"io/fs"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/visitlog/internal/component"
	"github.com/yanizio/visitlog/internal/view"
	"github.com/yanizio/visitlog/internal/visit"
	"github.com/yanizio/visitlog/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

// compile-time assertions
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Options configures presentation.
type Options struct {
	BasePath string         // http.base_path, used for links
	Location *time.Location // calendar for "today" and date filters; nil = UTC
}

// Component serves the admin API and pages.
type Component struct {
	store    *visit.Store
	overview *visit.Overview
	widgets  *widget.Registry
	views    *view.Engine
	opts     Options
}

// New wires the component.  Templates are parsed in Init.
func New(store *visit.Store, opts Options) *Component {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	c := &Component{
		store:    store,
		overview: visit.NewOverview(store, opts.Location),
		widgets:  widget.NewRegistry(),
		opts:     opts,
	}
	c.registerWidgets()
	return c
}

/*────────────────── component.Component methods ───────────────────────────*/

func (c *Component) Name() string   { return "admin" }
func (c *Component) Prefix() string { return "/admin" }

// Init parses the embedded templates.
func (c *Component) Init(context.Context) error {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return err
	}
	views, err := view.New(sub, c.opts.BasePath)
	if err != nil {
		return err
	}
	c.views = views
	return nil
}

// Routes builds the router mounted at Prefix.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.handleDashboard)
	r.Get("/visits/{id}", c.handleDetail)

	r.Route("/api", func(api chi.Router) {
		api.Get("/overview", c.handleOverview)
		api.Get("/visits", c.handleList)
		api.Post("/visits/bulk-delete", c.handleBulkDelete)
		api.Route("/visits/{id}", func(one chi.Router) {
			one.Get("/", c.handleGet)
			one.Patch("/", c.handleUpdate)
			one.Delete("/", c.handleDelete)
			one.Get("/journey", c.handleJourney)
			one.Get("/journey.mmd", c.handleMermaid)
		})
	})
	return r
}

/*──────────────────────────── Widgets ──────────────────────────────────────*/

// registerWidgets installs the overview tiles in display order.
func (c *Component) registerWidgets() {
	o := c.overview
	c.widgets.Register(widget.Func("total_visits", "Total Visits", "All recorded visits", o.Total))
	c.widgets.Register(widget.Func("today", "Today", "Visits since midnight", o.Today))
	c.widgets.Register(widget.Func("last_7_days", "Last 7 Days", "Visits in the past week", o.LastWeek))
	c.widgets.Register(widget.Func("unique_ips", "Unique IPs", "Distinct client addresses", o.UniqueIPs))
	c.widgets.Register(widget.Func("countries", "Countries", "Distinct visitor countries", o.Countries))
	c.widgets.Register(widget.Func("top_page", "Most Viewed Page", "Page with the most visits", o.TopPage))
}
