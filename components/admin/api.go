// components/admin/api.go
//
// JSON handlers.  Every error path goes through form.Fail or form.Error so
// bodies always carry a `message`.

package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/visitlog/internal/form"
	"github.com/yanizio/visitlog/internal/visit"
)

const notFoundMessage = "Visit not found."

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1,max=1000,dive,gte=1"`
}

type journeyResponse struct {
	HasSession bool           `json:"has_session"`
	Journey    *visit.Journey `json:"journey,omitempty"`
}

func (c *Component) handleOverview(w http.ResponseWriter, r *http.Request) {
	form.JSON(w, http.StatusOK, map[string]any{"widgets": c.widgets.ComputeAll(r.Context())})
}

func (c *Component) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query(), c.opts.Location)
	if err != nil {
		form.Fail(w, r, err)
		return
	}
	page, err := c.store.List(r.Context(), q)
	if err != nil {
		form.Fail(w, r, err)
		return
	}
	form.JSON(w, http.StatusOK, page)
}

func (c *Component) handleGet(w http.ResponseWriter, r *http.Request) {
	v, ok := c.loadVisit(w, r)
	if !ok {
		return
	}
	form.JSON(w, http.StatusOK, v)
}

func (c *Component) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := visitID(w, r)
	if !ok {
		return
	}
	var p visit.Patch
	if err := form.Bind(r, &p); err != nil {
		form.Fail(w, r, err)
		return
	}
	if err := c.store.Update(r.Context(), id, p); err != nil {
		c.fail(w, r, err)
		return
	}
	v, err := c.store.Get(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	form.JSON(w, http.StatusOK, v)
}

func (c *Component) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := visitID(w, r)
	if !ok {
		return
	}
	if err := c.store.Delete(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := form.Bind(r, &req); err != nil {
		form.Fail(w, r, err)
		return
	}
	n, err := c.store.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		form.Fail(w, r, err)
		return
	}
	form.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (c *Component) handleJourney(w http.ResponseWriter, r *http.Request) {
	v, ok := c.loadVisit(w, r)
	if !ok {
		return
	}
	j, err := visit.JourneyFor(r.Context(), c.store, v)
	switch {
	case errors.Is(err, visit.ErrNoSession):
		form.JSON(w, http.StatusOK, journeyResponse{HasSession: false})
	case err != nil:
		form.Fail(w, r, err)
	default:
		form.JSON(w, http.StatusOK, journeyResponse{HasSession: true, Journey: j})
	}
}

func (c *Component) handleMermaid(w http.ResponseWriter, r *http.Request) {
	v, ok := c.loadVisit(w, r)
	if !ok {
		return
	}
	j, err := visit.JourneyFor(r.Context(), c.store, v)
	switch {
	case errors.Is(err, visit.ErrNoSession):
		form.Error(w, http.StatusNotFound, "Visit has no session.")
	case err != nil:
		form.Fail(w, r, err)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(j.Mermaid()))
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// visitID parses {id}; a malformed id is answered as not found.
func visitID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		form.Error(w, http.StatusNotFound, notFoundMessage)
		return 0, false
	}
	return id, true
}

func (c *Component) loadVisit(w http.ResponseWriter, r *http.Request) (*visit.Visit, bool) {
	id, ok := visitID(w, r)
	if !ok {
		return nil, false
	}
	v, err := c.store.Get(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return nil, false
	}
	return v, true
}

// fail adds the ErrNotFound → 404 mapping to form.Fail.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, visit.ErrNotFound) {
		form.Error(w, http.StatusNotFound, notFoundMessage)
		return
	}
	form.Fail(w, r, err)
}
