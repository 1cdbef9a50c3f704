// components/admin/pages.go
//
// HTML pages.  Both pages are read-only views; edits and deletes go through
// the JSON API.

package admin

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yanizio/visitlog/internal/form"
	"github.com/yanizio/visitlog/internal/routing"
	"github.com/yanizio/visitlog/internal/ua"
	"github.com/yanizio/visitlog/internal/visit"
	"github.com/yanizio/visitlog/internal/widget"
)

type dashboardData struct {
	Title       string
	Widgets     []widget.Stat
	Page        visit.Page
	Filters     map[string]string
	Errors      form.Errors
	DeviceTypes []ua.DeviceType
	PrevURL     string
	NextURL     string
}

type detailData struct {
	Title   string
	Visit   *visit.Visit
	Journey *visit.Journey
	Mermaid string
}

func (c *Component) handleDashboard(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	data := dashboardData{
		Title:       "Visits",
		Widgets:     c.widgets.ComputeAll(r.Context()),
		DeviceTypes: ua.DeviceTypes,
		Filters:     map[string]string{},
	}
	for _, k := range []string{"q", "device_type", "country", "session_id", "from", "to", "sort"} {
		data.Filters[k] = values.Get(k)
	}

	q, err := parseListQuery(values, c.opts.Location)
	var ve *form.ValidationError
	if errors.As(err, &ve) {
		data.Errors = ve.Fields
		q = visit.ListQuery{}
	}

	page, err := c.store.List(r.Context(), q)
	if err != nil {
		c.renderError(w, r, err)
		return
	}
	data.Page = page

	self := routing.URL(c.opts.BasePath, c.Prefix()+"/")
	if page.Page > 1 {
		data.PrevURL = pageURL(self, values, page.Page-1)
	}
	if page.Page < page.LastPage {
		data.NextURL = pageURL(self, values, page.Page+1)
	}

	c.render(w, r, http.StatusOK, "dashboard", data)
}

func (c *Component) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := visitID(w, r)
	if !ok {
		return
	}
	v, err := c.store.Get(r.Context(), id)
	if errors.Is(err, visit.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		c.renderError(w, r, err)
		return
	}

	data := detailData{Title: "Visit #" + strconv.FormatInt(id, 10), Visit: v}
	j, err := visit.JourneyFor(r.Context(), c.store, v)
	switch {
	case errors.Is(err, visit.ErrNoSession):
		// page shows "no session" instead of a journey
	case err != nil:
		c.renderError(w, r, err)
		return
	default:
		data.Journey = j
		data.Mermaid = j.Mermaid()
	}

	c.render(w, r, http.StatusOK, "detail", data)
}

func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if c.views == nil {
		c.renderError(w, r, errors.New("admin templates not initialised"))
		return
	}
	if err := c.views.Render(w, status, name, data); err != nil {
		c.renderError(w, r, err)
	}
}

func (c *Component) renderError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("admin page failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
