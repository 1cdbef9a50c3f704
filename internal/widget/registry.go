// internal/widget/registry.go
//
// Dashboard widget registry.
//
// A **Widget** is one stat tile on the admin overview: a label, a value,
// and an optional description.  Widgets compute their value on every call;
// nothing is cached between requests.
//
// The admin component builds one Registry at startup and registers its
// widgets in display order:
//
//	reg := widget.NewRegistry()
//	reg.Register(widget.Func("total", "Total Visits", "All time", totalFn))
//	stats := reg.ComputeAll(ctx)
//
// A failing widget renders as "N/A" and the error is logged, so one slow
// or broken query never blanks the whole dashboard.
package widget

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Unavailable is shown in place of a value that could not be computed.
const Unavailable = "N/A"

// Stat is the computed content of one tile.
type Stat struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Widget computes a Stat.  Compute MUST be concurrency-safe; multiple
// requests may call it at once.
type Widget interface {
	ID() string
	Compute(ctx context.Context) (Stat, error)
}

// ValueFunc produces the display value of a FuncWidget.
type ValueFunc func(ctx context.Context) (string, error)

// FuncWidget adapts a ValueFunc into a Widget.
type FuncWidget struct {
	id, label, desc string
	fn              ValueFunc
}

// Func builds a FuncWidget.
func Func(id, label, desc string, fn ValueFunc) *FuncWidget {
	return &FuncWidget{id: id, label: label, desc: desc, fn: fn}
}

func (w *FuncWidget) ID() string { return w.id }

func (w *FuncWidget) Compute(ctx context.Context) (Stat, error) {
	st := Stat{ID: w.id, Label: w.label, Description: w.desc}
	v, err := w.fn(ctx)
	if err != nil {
		return st, err
	}
	st.Value = v
	return st, nil
}

// Registry keeps widgets in registration order.  Zero value is ready.
type Registry struct {
	mu    sync.RWMutex
	order []Widget
	byID  map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds w.  A duplicate ID replaces the earlier widget in place.
func (r *Registry) Register(w Widget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byID == nil {
		r.byID = make(map[string]int)
	}
	if i, ok := r.byID[w.ID()]; ok {
		zap.L().Warn("widget re-registered", zap.String("id", w.ID()))
		r.order[i] = w
		return
	}
	r.byID[w.ID()] = len(r.order)
	r.order = append(r.order, w)
}

// Lookup returns the widget or nil.
func (r *Registry) Lookup(id string) Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.byID[id]; ok {
		return r.order[i]
	}
	return nil
}

// All returns a copy of the registered widgets in order.
func (r *Registry) All() []Widget {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Widget(nil), r.order...)
}

// ComputeAll evaluates every widget in order.  Failures become Unavailable.
func (r *Registry) ComputeAll(ctx context.Context) []Stat {
	widgets := r.All()
	out := make([]Stat, 0, len(widgets))
	for _, w := range widgets {
		st, err := w.Compute(ctx)
		if err != nil {
			zap.L().Warn("widget compute failed", zap.String("id", w.ID()), zap.Error(err))
			st.ID = w.ID()
			st.Value = Unavailable
		}
		out = append(out, st)
	}
	return out
}
